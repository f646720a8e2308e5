package llm

// ChunkSummaryPrompt instructs the model to condense one transcript chunk
// into a short summary plus discrete takeaway points, as strict JSON.
const ChunkSummaryPrompt = `You summarize portions of video transcripts.

Given a transcript excerpt, respond with a JSON object of this exact shape:

{
  "summary": "a concise paragraph summarizing the excerpt",
  "points": ["key takeaway", "another key takeaway"]
}

Rules:
- "summary" is one short paragraph in plain prose.
- "points" lists the distinct factual takeaways from this excerpt only.
- Do not invent information that is not in the excerpt.
- Respond with JSON only. No markdown, no code fences, no commentary.`
