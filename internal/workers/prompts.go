package workers

// Prompts for the generative stages. Each asks for a bare JSON object;
// responses still pass through rehabilitation because models routinely
// wrap output in fences or slip into single quotes.

const visionPrompt = `Analyze this image in extreme detail. Describe: 1) ALL objects, 2) Number of people and their positions/moods, 3) Spatial layout, 4) Colors/lighting, 5) Scene context. Be exhaustive.`

const perceptionExtractionPrompt = `Extract structured scene data from the description below. Output ONLY a valid JSON object with these exact keys:
- objects: array of object names
- people_count: integer
- people_details: array of objects describing each person (position, mood)
- layout: object mapping region names to contents
- scene_type: short snake_case label (e.g. "outdoor_beach")
- setting: short free-text setting description
- colors: array of dominant color names
- lighting: short lighting description
- ambient_sounds: array of ambient sound labels a listener would hear (e.g. ["waves", "wind"])

DESCRIPTION:
`

const emotionSystemPrompt = `You infer the emotional atmosphere of a photographed scene. Output ONLY a valid JSON object with these exact keys: mood, emotion_tags (array), tone, intensity (low|medium|high), voice_characteristics (object), ambient_mood.`

const narrationPromptHeader = `Create a narration JSON for an immersive audio experience based on the following data:

PERCEPTION DATA:
%s

EMOTION DATA:
%s

Please output ONLY a valid JSON object with these exact keys:
- main_narration: A 3-4 sentence description of the scene, focusing on spatial elements and atmosphere
- person_dialogues: Array of objects with 'person_id', 'dialogue', and 'emotion' (use person details from perception if available)
- ambient_descriptions: Array of sound descriptions (e.g., ['waves', 'wind', 'birds'])`
