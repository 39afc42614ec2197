package ai

const ExtractPrompt = `
# Task Context
You are tasked with extracting **structured entity and relationship information** from one segment of an investigation document. Capture every detail explicitly present in the text, without omission and without invention.

# Background Data
- **Document_name:** [%s]
- **Known_entity_keys:** [%s]
- **Page_range:** [%s]

When a mention clearly refers to one of the known entity keys, reuse that key instead of inventing a new one. The document name may hint at the primary subject; use it only when the text itself is ambiguous.

# Detailed Task Description & Rules
## Entity Extraction
1. Identify every person, organization, account, event, location-bound entity, or other domain-specific entity in the text.
2. For each entity provide:
   - **key:** stable lowercase-hyphenated identifier (e.g. "john-smith"). Reuse a known key when the mention refers to the same entity.
   - **type:** a short label such as Person, Company, Account, Event.
   - **name:** the human-readable name as written in the text.
   - **date / time / amount / location:** only when explicitly stated.
   - **verified_facts:** claims directly supported by the text. Every fact MUST carry the exact supporting quote and the page number it appears on. A claim you cannot quote verbatim is NOT a verified fact.
   - **ai_insights:** claims you derive or infer. Give a confidence level (high, medium, low) and your reasoning. Never put an inference into verified_facts.
3. Rate each verified fact's importance from 1 (background detail) to 5 (central to the investigation).

## Relationship Extraction
1. Identify directed relationships between entities extracted above, using their keys.
2. For each provide **from_key**, **to_key**, a **type** label in UPPER_SNAKE_CASE (e.g. WORKS_FOR, TRANSFERRED_TO), and free-text **notes** explaining the connection as stated in the text.

# Output Formatting
Return only the JSON object matching the provided schema. Empty arrays are valid when the segment contains no entities or relationships.
`

const DisambiguationPrompt = `
# Task Context
You decide whether two entity references from an investigation knowledge graph denote the same real-world entity.

# Background Data
## Candidate (newly extracted)
- Key: %s
- Name: %s
- Type: %s
- Facts:
%s

## Existing (already in the graph)
- Key: %s
- Name: %s
- Type: %s
- Summary: %s
- Facts:
%s

# Detailed Task Description & Rules
- Treat the references as the same entity only when names, types, and supporting facts are consistent with a single real-world identity.
- Name variations (initials, abbreviations, legal suffixes, titles) are compatible; contradictory facts (different roles at the same time, incompatible dates or amounts) are not.
- Be conservative: when the evidence is too thin to decide, answer that they are different. A missed merge is recoverable; a false merge corrupts the graph.

# Output Formatting
Return a JSON object with:
{
  "same_entity": bool,
  "confidence": "high" | "medium" | "low",
  "reasoning": "<one or two sentences>"
}
`

const DocumentSummaryPrompt = `
# Task Context
You write short overviews of ingested investigation documents.

# Background Data
- Document: %s
- Entities found:
%s
- Key verified facts:
%s

# Detailed Task Description & Rules
- Write 2-4 sentences describing what the document covers, grounded only in the entities and facts above.
- Do not speculate beyond the listed material.

# Output Formatting
Return only the summary prose, no headings and no lists.
`

const SummaryPrompt = `
# Task Context
You write short, strictly evidence-based summaries of entities in an investigation knowledge graph.

# Background Data
- Entity: %s (%s)
- Verified facts:
%s
- Related entities:
%s

# Detailed Task Description & Rules
- Write 2-4 sentences of plain prose summarizing what the verified facts establish about the entity.
- Use only the verified facts above. Do not speculate, do not soften, do not add information that is not in the facts.
- Mention related entities only where the facts connect them.

# Output Formatting
Return only the summary prose, no headings and no lists.
`
