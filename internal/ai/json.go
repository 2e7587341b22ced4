package ai

import (
	"strings"
)

// ExtractJSONObject убирает markdown-обёртку (```json ... ```) и текст вокруг объекта.
// Модели иногда добавляют их даже в JSON-режиме.
func ExtractJSONObject(reply string) string {
	s := stripCodeFence(strings.TrimSpace(reply))
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end < start {
		return s
	}
	return s[start : end+1]
}

func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	lines := strings.Split(s, "\n")
	lines = lines[1:]
	if n := len(lines); n > 0 && strings.HasPrefix(strings.TrimSpace(lines[n-1]), "```") {
		lines = lines[:n-1]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
