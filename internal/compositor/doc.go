// Package compositor merges synthesized voice segments and ambient
// loops into one stereo WAV. Layer placement is deterministic: narration
// at timeline start, dialogue at a fixed offset with left/right panning,
// ambient loops sorted by label under the full mix at reduced gain.
// Identical inputs produce an identical layer layout regardless of the
// order the underlying synthesis calls finished in.
package compositor
