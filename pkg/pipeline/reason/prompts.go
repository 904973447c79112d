package reason

// Prompt templates for the reasoning nodes. Placeholders are expanded with
// the prompt package; the wording matters less than the response contracts
// each node parses (OK/CLARIFY prefix, one call per line, "N: rationale").

const gatekeepTemplate = `You screen analytical questions about sales-call transcripts.
If the request below is specific enough to act on, respond with exactly: OK
If it is too vague or ambiguous to answer, respond with: CLARIFY: <one question that would resolve the ambiguity>

Request: ${request}`

const planTemplate = `You plan tool calls to answer a question about sales-call transcripts.
Available tools: ${tools}

Respond with one call per line using exactly the form: name('argument')
Use single quotes, one string argument, no nesting. End the plan with: finish('')

Question: ${request}${history}`

const verifyTemplate = `You audit a single step of an investigation into sales-call transcripts.
Question being answered: ${request}
Step taken: ${action}('${input}')
Step result: ${result}

Rate how much this step result contributes to answering the question on a
scale of 1 (useless or wrong) to 5 (directly answers it). Respond with
exactly: <score>: <one-sentence rationale>`

const concludeTemplate = `You write the final answer to a question about sales-call transcripts.
Question: ${request}

Recorded steps and results:
${log}

Write one coherent answer grounded only in the recorded results. If some
steps failed, answer with what remains and note what could not be checked.`
