package service

import (
	"fmt"
	"strings"

	"artstory-server/internal/models"
)

// Caption собирает подпись для публикации из результата анализа и хэштегов.
func Caption(result models.AnalysisResult, hashtags []string) (string, error) {
	if err := result.RequireFields(); err != nil {
		return "", err
	}
	return fmt.Sprintf("🎨 Meet %s! 🐕\n\n%s\n\nArt Style: %s\n\n%s",
		result.Name, result.Story, result.Style, strings.Join(hashtags, " ")), nil
}
