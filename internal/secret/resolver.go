package secret

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
)

// ErrNotFound is returned when a secret reference points at nothing.
var ErrNotFound = errors.New("secret not found")

// Reference schemes. Anything without a known prefix is a literal value.
const (
	schemeEnv      = "env:"
	schemeAWS      = "aws-sm:"
	schemeKeychain = "keychain:"
)

// Resolver turns password references from the config file into values.
//
//	env:NAME           environment variable
//	aws-sm:ID[#key]    AWS Secrets Manager, optionally one key of a JSON secret
//	keychain:ACCOUNT   macOS Keychain
//	anything else      used as-is
type Resolver struct {
	Keychain  SecretStore
	LookupEnv func(string) (string, bool)

	// NewAWS builds the Secrets Manager client on first use.
	NewAWS func(ctx context.Context) (SecretsManagerAPI, error)

	awsOnce sync.Once
	aws     SecretsManagerAPI
	awsErr  error
}

// NewResolver returns a Resolver wired to the process environment, the
// macOS Keychain and the default AWS credential chain.
func NewResolver() *Resolver {
	return &Resolver{
		Keychain:  NewKeychainStore(),
		LookupEnv: os.LookupEnv,
		NewAWS:    NewSecretsManager,
	}
}

// Resolve returns the secret ref points at. An empty ref resolves to "".
func (r *Resolver) Resolve(ctx context.Context, ref string) (string, error) {
	switch {
	case strings.HasPrefix(ref, schemeEnv):
		name := strings.TrimPrefix(ref, schemeEnv)
		lookup := r.LookupEnv
		if lookup == nil {
			lookup = os.LookupEnv
		}
		v, ok := lookup(name)
		if !ok {
			return "", fmt.Errorf("%w: environment variable %s", ErrNotFound, name)
		}
		return v, nil

	case strings.HasPrefix(ref, schemeAWS):
		id, key, _ := strings.Cut(strings.TrimPrefix(ref, schemeAWS), "#")
		if id == "" {
			return "", fmt.Errorf("aws-sm reference has no secret id")
		}
		api, err := r.awsClient(ctx)
		if err != nil {
			return "", err
		}
		return fetchAWSSecret(ctx, api, id, key)

	case strings.HasPrefix(ref, schemeKeychain):
		account := strings.TrimPrefix(ref, schemeKeychain)
		if r.Keychain == nil {
			return "", fmt.Errorf("no keychain configured")
		}
		v, err := r.Keychain.Get(account)
		if err != nil {
			return "", err
		}
		if v == nil {
			return "", fmt.Errorf("%w: keychain account %s", ErrNotFound, account)
		}
		return string(v), nil

	default:
		return ref, nil
	}
}

func (r *Resolver) awsClient(ctx context.Context) (SecretsManagerAPI, error) {
	r.awsOnce.Do(func() {
		if r.NewAWS == nil {
			r.awsErr = fmt.Errorf("no AWS Secrets Manager client configured")
			return
		}
		r.aws, r.awsErr = r.NewAWS(ctx)
	})
	return r.aws, r.awsErr
}
