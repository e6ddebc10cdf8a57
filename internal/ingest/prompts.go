package ingest

import "strings"

// schemaPrompt describes the single-object JSON contract every modality
// shares. Amount is a decimal STRING so the numeric value survives the
// round trip without floating point.
const schemaPrompt = "You are a personal-finance transaction extractor.\n\n" +
	"Task:\n" +
	"- Extract AT MOST ONE transaction from the attached input.\n" +
	"- Output STRICT JSON only (no comments, no trailing commas, no extra text).\n" +
	"- Output a single JSON object.\n\n" +
	"The object must have these fields:\n" +
	"- \"found\": boolean (false when the input contains no transaction)\n" +
	"- \"reason\": string or null (\"no_transaction\" or \"transcription_failed\"; only when found is false)\n" +
	"- \"amount\": string, the positive decimal amount as written, e.g. \"25.50\" (null when found is false)\n" +
	"- \"currency\": string, ISO 4217 code, or null if the input does not name one\n" +
	"- \"type\": string, \"expense\" or \"income\"\n" +
	"- \"date\": string in ISO format \"YYYY-MM-DD\", or null if the input has no date\n" +
	"- \"description\": string, a short human-readable summary, or null\n" +
	"- \"category_hint\": string, the category the input suggests (e.g. \"groceries\"), or null\n" +
	"- \"account_hint\": string, the account the input names (e.g. \"checking\"), or null\n"

const rulesPrompt = "Rules:\n" +
	"- \"amount\" must be a STRING, never a JSON number, and never negative.\n" +
	"- Do NOT invent a currency: use null when the input does not name one.\n" +
	"- Do NOT invent a date: use null when the input does not name one.\n" +
	"- Keep \"description\" under 500 characters.\n" +
	"Return ONLY valid raw JSON.\n" +
	"Do NOT wrap the response in code fences.\n" +
	"Do NOT use ```json or any Markdown.\n" +
	"Output must begin with \"{\" and end with \"}\".\n"

func buildVoicePrompt(language string) string {
	var b strings.Builder
	b.WriteString(schemaPrompt)
	b.WriteString("\nInput: a voice recording")
	writeLanguageHint(&b, language)
	b.WriteString(".\n")
	b.WriteString("First transcribe the recording, then extract the transaction from the transcript.\n")
	b.WriteString("If the audio is unintelligible, set \"found\" to false and \"reason\" to \"transcription_failed\".\n")
	b.WriteString("If the transcript mentions no spending or income, set \"found\" to false and \"reason\" to \"no_transaction\".\n\n")
	b.WriteString(rulesPrompt)
	return b.String()
}

func buildReceiptPrompt(language string) string {
	var b strings.Builder
	b.WriteString(schemaPrompt)
	b.WriteString("\nInput: a photo or scan of a receipt")
	writeLanguageHint(&b, language)
	b.WriteString(".\n")
	b.WriteString("Use the receipt TOTAL as the amount, the merchant name in the description,\n")
	b.WriteString("and the receipt date as the date. The type is \"expense\" unless the receipt\n")
	b.WriteString("is clearly a refund.\n")
	b.WriteString("If the image is not a receipt or has no readable total, set \"found\" to false.\n\n")
	b.WriteString(rulesPrompt)
	return b.String()
}

func buildTextPrompt(text, language string) string {
	var b strings.Builder
	b.WriteString(schemaPrompt)
	b.WriteString("\nInput: a free-text message")
	writeLanguageHint(&b, language)
	b.WriteString(".\n")
	b.WriteString("If the message mentions no spending or income, set \"found\" to false.\n\n")
	b.WriteString(rulesPrompt)
	b.WriteString("\nMessage:\n")
	b.WriteString(text)
	return b.String()
}

func buildTextWithImagePrompt(text, language string) string {
	var b strings.Builder
	b.WriteString(schemaPrompt)
	b.WriteString("\nInput: a free-text message plus an attached image")
	writeLanguageHint(&b, language)
	b.WriteString(".\n")
	b.WriteString("The message is the primary signal; the image is supporting evidence.\n")
	b.WriteString("When the message and the image disagree on the amount, date, or any other\n")
	b.WriteString("field, the message ALWAYS wins. Use the image only to fill fields the\n")
	b.WriteString("message leaves out.\n")
	b.WriteString("If neither the message nor the image yields a transaction, set \"found\" to false.\n\n")
	b.WriteString(rulesPrompt)
	b.WriteString("\nMessage:\n")
	b.WriteString(text)
	return b.String()
}

func writeLanguageHint(b *strings.Builder, language string) {
	if language != "" {
		b.WriteString(" in language ")
		b.WriteString(language)
	}
}
