package ingest

// Prompt templates for the LLM-backed ingestion nodes. The extraction
// template defines a line-oriented response contract that parseExtraction
// consumes; the generation templates share the brief assembled at the
// intelligence fan-in.

const extractTemplate = `You extract structured data from a sales-call transcript.

Respond with one item per line, nothing else, using exactly these forms:
ENTITY <name> | <kind>
FACT <subject> | <relation> | <object>

Kinds are short labels such as person, company, product, amount, date.
Facts are subject-relation-object triples stated in the call.

Transcript:
${transcript}`

const summaryTemplate = `You summarize a sales call for an account record.
Write one paragraph covering who spoke, what was discussed per call phase,
and the outcome. Ground every claim in the material below.

${brief}`

const followupTemplate = `You draft a short follow-up email from the seller to the prospect
after the sales call described below. Reference concrete points from the
call, confirm agreed next steps, and keep it under 150 words. Respond with
the email body only.

${brief}`

const coachingTemplate = `You write coaching notes for the sales representative on the call
described below. Point at specific moments: what worked, what to improve,
and one concrete suggestion per improvement. Use short bullet points.

${brief}`
