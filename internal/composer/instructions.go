package composer

// Task instructions placed in the system message.
const (
	ChatInstruction = "You are a helpful AI assistant. Answer the user's question using ONLY the " +
		"information provided below. If the answer is not in the context, say 'I don't know.' " +
		"Do not make up information."

	SummarizeInstruction = "You are a helpful AI assistant. Summarize the following document in no " +
		"more than 150 words. Focus on the main points and key findings. Do not include " +
		"information not present in the document."

	QuestionsInstruction = "You are a helpful AI assistant. Generate three logic-based or " +
		"comprehension-focused questions about the following document. Each question should " +
		"require understanding or reasoning about the document content, not just simple recall. " +
		"Provide each question on a new line."

	EvaluateInstruction = "You are a helpful AI assistant. Your task is to evaluate the user's " +
		"answer to a question, using ONLY the information below as reference. If the answer is " +
		"not correct, explain why and provide the correct answer with justification from the " +
		"document. Do not make up information."

	CondenseInstruction = "Given a chat history and the latest user question which might " +
		"reference context in the chat history, formulate a standalone question which can be " +
		"understood without the chat history. Do NOT answer the question, just reformulate it " +
		"if needed and otherwise return it as is."
)

// SummaryWordLimit is the longest summary the summarize task returns.
const SummaryWordLimit = 150

// DocumentMessage is the user message carrying a whole document, ending with
// a cue such as "Summary:" or "Questions:".
func DocumentMessage(content, cue string) string {
	return "Document: " + content + "\n\n" + cue
}

// EvaluationMessage is the user message for answer evaluation.
func EvaluationMessage(question, answer string) string {
	return "Question: " + question + "\nUser Answer: " + answer + "\nEvaluation:"
}
