package llm

import "strings"

// ExtractJSON вырезает JSON-объект из текстового ответа LLM: подстрока от
// первой '{' до последней '}'. Модели нередко оборачивают JSON в markdown
// или сопровождают комментарием - это последний шанс перед повторной
// валидацией схемы.
func ExtractJSON(content string) string {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start == -1 || end == -1 || end < start {
		return ""
	}
	return content[start : end+1]
}
