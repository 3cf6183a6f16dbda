package llm

// BoundaryProposalPrompt instructs the model to choose scene cut points from
// an episode transcript. The user prompt carries the rendered transcript with
// "[start - end] text" lines plus the total duration.
const BoundaryProposalPrompt = `You are an assistant that splits a long-form episode transcript into coherent, standalone scenes.

Goal: choose cut timestamps so each resulting clip tells a complete mini-story.

- Group continuous conversations or related actions into a single scene, even if the characters move slightly (e.g. walking from kitchen to living room).
- Cut when there is a hard transition to a completely different storyline, set of characters, or a significant time jump.
- Scenes are typically 1-5 minutes. Do not produce fragments shorter than 30 seconds; merge them into the adjacent scene instead.
- If two consecutive stretches involve the same characters discussing the same topic, keep them together even across small gaps or minor location shifts.
- Timestamps are seconds from the start of the episode and should fall on or near the transcript line timings given.

Respond with JSON only, in this exact shape:
{
  "boundaries": [
    {"timestamp": 312.5, "rationale": "storyline shifts from the kitchen argument to the office"}
  ]
}

Do not include 0 or the total duration as boundaries. An empty list is valid when the episode is a single scene.`

// SpanExtractionPrompt instructs the model to identify vocabulary worth
// teaching in one segment's text. The user prompt is the raw segment text.
const SpanExtractionPrompt = `You are an assistant that identifies vocabulary in a dialogue excerpt for language learners.

Task: find the words (nouns, verbs, adjectives, adverbs) in the supplied text that are worth teaching, and annotate each.

For each item:
- "label": the dictionary lemma, lowercase (e.g. "running" becomes "run").
- "part_of_speech": one of "noun", "verb", "adjective", "adverb".
- "span_start" / "span_end": character offsets of the surface form within the supplied text, 0-based, end exclusive.
- "definition": a short learner-friendly definition of the sense used here.
- "evidence": the sentence or clause from the text that shows this sense in use.

Rules:
- Offsets must satisfy 0 <= span_start < span_end <= text length.
- Annotate each distinct word sense at most once.
- Skip proper nouns, function words, and filler.

Respond with JSON only, in this exact shape:
{
  "spans": [
    {"label": "run", "part_of_speech": "verb", "span_start": 2, "span_end": 9, "definition": "to move quickly on foot", "evidence": "I run every morning before work."}
  ]
}

An empty list is valid when nothing is worth teaching.`
