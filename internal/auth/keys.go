package auth

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync/atomic"
)

// KeyResolver looks up the public key an identity provider signs with.
// An empty providerURL asks for the deployment-wide default key.
type KeyResolver interface {
	ResolveKey(providerURL string) (*rsa.PublicKey, bool)
}

// PublicKeyRegistry maps identity-provider URLs to their registered RSA
// public keys. It is populated at startup and read-only afterwards.
type PublicKeyRegistry struct {
	defaultKey *rsa.PublicKey
	providers  map[string]*rsa.PublicKey
}

// NewPublicKeyRegistry creates an empty registry
func NewPublicKeyRegistry() *PublicKeyRegistry {
	return &PublicKeyRegistry{providers: make(map[string]*rsa.PublicKey)}
}

// SetDefault registers the key used when a request names no provider
func (r *PublicKeyRegistry) SetDefault(key *rsa.PublicKey) {
	r.defaultKey = key
}

// Register associates a provider URL with its public key
func (r *PublicKeyRegistry) Register(providerURL string, key *rsa.PublicKey) {
	r.providers[normalizeProviderURL(providerURL)] = key
}

// ResolveKey returns the provider's key, or the default key when
// providerURL is empty. A named provider that is not registered never
// falls back to the default.
func (r *PublicKeyRegistry) ResolveKey(providerURL string) (*rsa.PublicKey, bool) {
	if strings.TrimSpace(providerURL) == "" {
		return r.defaultKey, r.defaultKey != nil
	}
	key, ok := r.providers[normalizeProviderURL(providerURL)]
	return key, ok && key != nil
}

// Len returns the number of named providers
func (r *PublicKeyRegistry) Len() int {
	return len(r.providers)
}

func normalizeProviderURL(providerURL string) string {
	return strings.TrimSpace(providerURL)
}

// SwappableKeyResolver serves keys from a registry that can be replaced
// wholesale while requests are being verified. Each lookup sees either the
// old or the new registry, never a mix.
type SwappableKeyResolver struct {
	current atomic.Pointer[PublicKeyRegistry]
}

// NewSwappableKeyResolver creates a resolver serving initial
func NewSwappableKeyResolver(initial *PublicKeyRegistry) *SwappableKeyResolver {
	s := &SwappableKeyResolver{}
	s.current.Store(initial)
	return s
}

func (s *SwappableKeyResolver) ResolveKey(providerURL string) (*rsa.PublicKey, bool) {
	registry := s.current.Load()
	if registry == nil {
		return nil, false
	}
	return registry.ResolveKey(providerURL)
}

// Swap replaces the served registry
func (s *SwappableKeyResolver) Swap(registry *PublicKeyRegistry) {
	s.current.Store(registry)
}

// LoadPublicKeyRegistry builds a registry from PEM files. defaultKeyFile
// may be empty; providerKeyFiles maps provider URL to PEM path.
func LoadPublicKeyRegistry(defaultKeyFile string, providerKeyFiles map[string]string) (*PublicKeyRegistry, error) {
	registry := NewPublicKeyRegistry()

	if defaultKeyFile != "" {
		key, err := LoadRSAPublicKeyFile(defaultKeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load default federation key: %w", err)
		}
		registry.SetDefault(key)
	}

	for providerURL, path := range providerKeyFiles {
		key, err := LoadRSAPublicKeyFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load key for provider %s: %w", providerURL, err)
		}
		registry.Register(providerURL, key)
	}

	return registry, nil
}

// LoadRSAPublicKeyFile reads a PEM-encoded RSA public key or certificate
func LoadRSAPublicKeyFile(path string) (*rsa.PublicKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read key file: %w", err)
	}
	return ParseRSAPublicKeyPEM(data)
}

// ParseRSAPublicKeyPEM accepts PKIX ("PUBLIC KEY"), PKCS1 ("RSA PUBLIC KEY")
// and X.509 certificate blocks
func ParseRSAPublicKeyPEM(data []byte) (*rsa.PublicKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, errors.New("failed to decode PEM block")
	}

	switch block.Type {
	case "PUBLIC KEY":
		pub, err := x509.ParsePKIXPublicKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("failed to parse PKIX public key: %w", err)
		}
		rsaPub, ok := pub.(*rsa.PublicKey)
		if !ok {
			return nil, errors.New("public key is not RSA")
		}
		return rsaPub, nil
	case "RSA PUBLIC KEY":
		pub, err := x509.ParsePKCS1PublicKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("failed to parse PKCS1 public key: %w", err)
		}
		return pub, nil
	case "CERTIFICATE":
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("failed to parse certificate: %w", err)
		}
		rsaPub, ok := cert.PublicKey.(*rsa.PublicKey)
		if !ok {
			return nil, errors.New("certificate key is not RSA")
		}
		return rsaPub, nil
	default:
		return nil, fmt.Errorf("unsupported PEM block type %q", block.Type)
	}
}
