package advisor

import (
	"encoding/json"
	"fmt"

	"github.com/dustin/go-humanize"
)

// systemPrompt - инструкции для модели. Ответ модели проверяется по ResponseSchema.
const systemPrompt = `You recommend optimal image conversion settings for a single image based on the user's optimization goal.

Respond with a single JSON object and nothing else. The object must match this JSON Schema:
%s

Field rules:
- "format": one of "jpeg", "png", "webp".
- "quality": an integer between 1 and 100 (usually between 50 and 95).
- "width", "height": optional positive integers, only if resizing clearly helps the goal.
- "reasoning": a brief explanation of your choices, for example "Switched to WebP for better web performance and applied 80%% quality for a good balance."

Guidelines:
- For "web", prioritize "webp" for its balance of quality and small file size. Use a quality around 80.
- For "storage", prioritize "jpeg" with a lower quality (around 70-75) to maximize space savings, unless transparency is needed (then use "png").
- For "quality", prioritize "png" for lossless compression or "jpeg"/"webp" with a high quality setting (around 90-95).
- If the original format is png and the goal is not "quality", strongly consider converting to webp or jpeg to save space.
- If the original is a gif, suggest converting to webp.`

// buildSystemPrompt подставляет схему ответа в инструкции.
func buildSystemPrompt() string {
	return fmt.Sprintf(systemPrompt, ResponseSchema)
}

// buildUserPrompt описывает изображение для модели.
func buildUserPrompt(req Request) (string, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("сериализация запроса: %w", err)
	}
	return fmt.Sprintf("Analyze the following image properties and recommend the optimal conversion settings.\n"+
		"- File Name: %s\n"+
		"- Original Format: %s\n"+
		"- Original Size: %s\n"+
		"- Optimization Goal: %q\n\n"+
		"Request JSON: %s",
		req.FileName, req.FileType, humanize.Bytes(uint64(max(req.FileSize, 0))), req.Goal, payload), nil
}
