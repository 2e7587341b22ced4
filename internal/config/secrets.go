package config

import (
	"fmt"
	"os"
	"strings"
)

const secretsDir = "/run/secrets"

// ReadSecret читает секрет из файла Docker Secrets.
func ReadSecret(secretName string) (string, error) {
	return readSecretFile(fmt.Sprintf("%s/%s", secretsDir, secretName))
}

func readSecretFile(filePath string) (string, error) {
	secretBytes, err := os.ReadFile(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to read secret file %s: %w", filePath, err)
	}
	secret := strings.TrimSpace(string(secretBytes))
	if secret == "" {
		return "", fmt.Errorf("secret file %s is empty", filePath)
	}
	return secret, nil
}

// secret берёт значение из переменной окружения, иначе из файла секрета.
func secret(envKey, secretName string) (string, error) {
	if v := strings.TrimSpace(os.Getenv(envKey)); v != "" {
		return v, nil
	}
	v, err := ReadSecret(secretName)
	if err != nil {
		return "", fmt.Errorf("%s is not set and %w", envKey, err)
	}
	return v, nil
}
