package ai

import (
	"github.com/pkoukk/tiktoken-go"
)

const fallbackEncoding = "cl100k_base"

// estimateUsage считает токены локально, когда провайдер не вернул usage.
// При недоступном токенизаторе возвращает нулевой Usage.
func estimateUsage(model string, req ChatRequest, reply string) Usage {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding(fallbackEncoding)
		if err != nil {
			return Usage{}
		}
	}
	prompt := len(enc.Encode(req.SystemPrompt, nil, nil)) + len(enc.Encode(req.UserPrompt, nil, nil))
	completion := len(enc.Encode(reply, nil, nil))
	return Usage{
		PromptTokens:     prompt,
		CompletionTokens: completion,
		TotalTokens:      prompt + completion,
		Estimated:        true,
	}
}
