package aws

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

// SecretsAPI is the slice of the Secrets Manager client the backend uses.
type SecretsAPI interface {
	GetSecretValue(ctx context.Context, in *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// SecretsClient reads the backend's JSON secret bundles. Bundles are fetched
// once per name and reused for the life of the process.
type SecretsClient struct {
	api     SecretsAPI
	mu      sync.Mutex
	bundles map[string]map[string]string
}

func NewSecretsClient(cfg sdkaws.Config) *SecretsClient {
	return NewSecretsClientWithAPI(secretsmanager.NewFromConfig(cfg))
}

func NewSecretsClientWithAPI(api SecretsAPI) *SecretsClient {
	return &SecretsClient{api: api, bundles: map[string]map[string]string{}}
}

// GetSecretMap returns the flat JSON object stored under name, for example
// {"JWT_SECRET": "...", "RAZORPAY_KEY_SECRET": "..."}.
func (s *SecretsClient) GetSecretMap(ctx context.Context, name string) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if bundle, ok := s.bundles[name]; ok {
		return bundle, nil
	}

	out, err := s.api.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{SecretId: sdkaws.String(name)})
	if err != nil {
		return nil, fmt.Errorf("failed to read secret bundle %s: %w", name, err)
	}
	if out.SecretString == nil {
		return nil, fmt.Errorf("secret bundle %s is binary", name)
	}

	bundle := map[string]string{}
	if err := json.Unmarshal([]byte(*out.SecretString), &bundle); err != nil {
		return nil, fmt.Errorf("secret bundle %s is not a JSON object: %w", name, err)
	}
	s.bundles[name] = bundle
	return bundle, nil
}

// GetSecret returns one key of a bundle.
func (s *SecretsClient) GetSecret(ctx context.Context, name, key string) (string, error) {
	bundle, err := s.GetSecretMap(ctx, name)
	if err != nil {
		return "", err
	}
	v, ok := bundle[key]
	if !ok {
		return "", fmt.Errorf("secret bundle %s has no key %s", name, key)
	}
	return v, nil
}
