package secret_test

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taxisync/internal/secret"
)

type fakeSM struct {
	secrets map[string]string
	calls   int
}

func (f *fakeSM) GetSecretValue(_ context.Context, in *secretsmanager.GetSecretValueInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	f.calls++
	v, ok := f.secrets[aws.ToString(in.SecretId)]
	if !ok {
		return nil, &smithy.GenericAPIError{Code: "ResourceNotFoundException", Message: "no such secret"}
	}
	return &secretsmanager.GetSecretValueOutput{SecretString: aws.String(v)}, nil
}

func newResolver(sm *fakeSM) *secret.Resolver {
	env := map[string]string{"PG_PASSWORD": "from-env"}
	return &secret.Resolver{
		Keychain: secret.MapStore{"clickhouse": "from-keychain"},
		LookupEnv: func(k string) (string, bool) {
			v, ok := env[k]
			return v, ok
		},
		NewAWS: func(context.Context) (secret.SecretsManagerAPI, error) { return sm, nil },
	}
}

func TestResolver_Schemes(t *testing.T) {
	ctx := context.Background()
	sm := &fakeSM{secrets: map[string]string{
		"prod/pg":   "plain-secret",
		"prod/json": `{"password":"p@ss","port":5432}`,
	}}
	r := newResolver(sm)

	cases := map[string]string{
		"":                          "",
		"literal":                   "literal",
		"env:PG_PASSWORD":           "from-env",
		"keychain:clickhouse":       "from-keychain",
		"aws-sm:prod/pg":            "plain-secret",
		"aws-sm:prod/json#password": "p@ss",
		"aws-sm:prod/json#port":     "5432",
	}
	for ref, want := range cases {
		got, err := r.Resolve(ctx, ref)
		require.NoError(t, err, ref)
		assert.Equal(t, want, got, ref)
	}
	assert.Equal(t, 3, sm.calls)
}

func TestResolver_NotFound(t *testing.T) {
	ctx := context.Background()
	r := newResolver(&fakeSM{secrets: map[string]string{"prod/json": `{"a":"b"}`, "prod/raw": "xyz"}})

	for _, ref := range []string{"env:MISSING", "keychain:nobody", "aws-sm:prod/none", "aws-sm:prod/json#password"} {
		_, err := r.Resolve(ctx, ref)
		assert.ErrorIs(t, err, secret.ErrNotFound, ref)
	}

	_, err := r.Resolve(ctx, "aws-sm:prod/raw#password")
	assert.ErrorContains(t, err, "not a JSON object")

	_, err = r.Resolve(ctx, "aws-sm:")
	assert.Error(t, err)
}

func TestResolver_AWSClientErrorIsSticky(t *testing.T) {
	calls := 0
	r := &secret.Resolver{NewAWS: func(context.Context) (secret.SecretsManagerAPI, error) {
		calls++
		return nil, errors.New("no credentials")
	}}

	for i := 0; i < 2; i++ {
		_, err := r.Resolve(context.Background(), "aws-sm:x")
		assert.ErrorContains(t, err, "no credentials")
	}
	assert.Equal(t, 1, calls)
}

func TestMapStore_MissingKeyIsNil(t *testing.T) {
	v, err := secret.MapStore{"a": "b"}.Get("absent")
	require.NoError(t, err)
	assert.Nil(t, v)
}
