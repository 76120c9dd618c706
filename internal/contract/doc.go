// Package contract defines the message envelopes and payload records shared
// by the orchestrator and the five stage workers.
//
// A Request carries structured JSON the orchestrator marshaled itself; a
// Response payload is treated as loose text until the rehabilitator has
// normalized and parsed it, because generative workers are not trusted to
// emit strict JSON. The envelopes are the only interface a worker has to
// implement; transport behind them is the in-process bus.
package contract
