package keyvault

import (
	"context"
	"net/http"
	"sync"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/security/keyvault/azsecrets"
)

type getCall struct {
	name    string
	version string
}

// fakeClient is an in-memory SecretClient.
type fakeClient struct {
	mu       sync.Mutex
	secrets  map[string]azsecrets.SetSecretParameters
	gets     []getCall
	err      error
	nilValue bool
}

func newFakeClient() *fakeClient {
	return &fakeClient{secrets: make(map[string]azsecrets.SetSecretParameters)}
}

func notFound() error {
	return &azcore.ResponseError{StatusCode: http.StatusNotFound, ErrorCode: "SecretNotFound"}
}

func (f *fakeClient) GetSecret(ctx context.Context, name, version string, options *azsecrets.GetSecretOptions) (azsecrets.GetSecretResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.gets = append(f.gets, getCall{name: name, version: version})
	if f.err != nil {
		return azsecrets.GetSecretResponse{}, f.err
	}
	params, ok := f.secrets[name]
	if !ok {
		return azsecrets.GetSecretResponse{}, notFound()
	}
	if f.nilValue {
		return azsecrets.GetSecretResponse{}, nil
	}
	return azsecrets.GetSecretResponse{Secret: azsecrets.Secret{Value: params.Value, ContentType: params.ContentType, Tags: params.Tags}}, nil
}

func (f *fakeClient) SetSecret(ctx context.Context, name string, parameters azsecrets.SetSecretParameters, options *azsecrets.SetSecretOptions) (azsecrets.SetSecretResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return azsecrets.SetSecretResponse{}, f.err
	}
	f.secrets[name] = parameters
	return azsecrets.SetSecretResponse{}, nil
}

func (f *fakeClient) DeleteSecret(ctx context.Context, name string, options *azsecrets.DeleteSecretOptions) (azsecrets.DeleteSecretResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return azsecrets.DeleteSecretResponse{}, f.err
	}
	if _, ok := f.secrets[name]; !ok {
		return azsecrets.DeleteSecretResponse{}, notFound()
	}
	delete(f.secrets, name)
	return azsecrets.DeleteSecretResponse{}, nil
}

func (f *fakeClient) put(name, value string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.secrets[name] = azsecrets.SetSecretParameters{Value: &value}
}
