package credential

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) Get(ctx context.Context, host string) (*Entry, error) {
	args := m.Called(ctx, host)
	entry, _ := args.Get(0).(*Entry)
	return entry, args.Error(1)
}

func (m *mockStore) Save(ctx context.Context, host string, entry *Entry) error {
	return m.Called(ctx, host, entry).Error(0)
}

func (m *mockStore) Remove(ctx context.Context, host string) error {
	return m.Called(ctx, host).Error(0)
}

type mockPrompter struct {
	mock.Mock
}

func (m *mockPrompter) Prompt(ctx context.Context, host, message string) (*Entry, error) {
	args := m.Called(ctx, host, message)
	entry, _ := args.Get(0).(*Entry)
	return entry, args.Error(1)
}

func TestAcquire_NotNeeded(t *testing.T) {
	store := &mockStore{}
	prompter := &mockPrompter{}
	a := NewAcquirer(store, prompter, nil)

	cred, err := a.Acquire(context.Background(), "https://example.com/$metadata", AcquireOptions{Needed: false})
	require.NoError(t, err)
	assert.True(t, cred.IsNone())

	store.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
	prompter.AssertNotCalled(t, "Prompt", mock.Anything, mock.Anything, mock.Anything)
}

func TestAcquire_NonHTTPEndpoint(t *testing.T) {
	store := &mockStore{}
	a := NewAcquirer(store, &mockPrompter{}, nil)

	for _, endpoint := range []string{"/tmp/metadata.xml", "file:///tmp/metadata.xml", "ftp://example.com/x"} {
		cred, err := a.Acquire(context.Background(), endpoint, AcquireOptions{Needed: true})
		require.NoError(t, err)
		assert.True(t, cred.IsNone(), endpoint)
	}
	store.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
}

func TestAcquire_CachedCredentials(t *testing.T) {
	tests := []struct {
		endpoint string
		host     string
		kind     Kind
	}{
		{"https://example.com/svc/$metadata", "example.com", KindGenericNetwork},
		{"https://contoso.sharepoint.com/_vti_bin/listdata.svc/$metadata", "contoso.sharepoint.com", KindCloudAuthenticated},
		{"https://Contoso.SharePoint.com/_api/$metadata", "Contoso.SharePoint.com", KindCloudAuthenticated},
	}

	for _, tt := range tests {
		t.Run(tt.endpoint, func(t *testing.T) {
			store := &mockStore{}
			store.On("Get", mock.Anything, tt.host).Return(&Entry{Username: "alice", Secret: NewSecret("pw")}, nil)
			prompter := &mockPrompter{}

			cred, err := NewAcquirer(store, prompter, nil).Acquire(context.Background(), tt.endpoint, AcquireOptions{Needed: true})
			require.NoError(t, err)
			assert.Equal(t, tt.kind, cred.Kind)
			assert.Equal(t, "alice", cred.Username)
			assert.Equal(t, "pw", cred.Secret.Reveal())

			store.AssertExpectations(t)
			prompter.AssertNotCalled(t, "Prompt", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestAcquire_PromptsWhenMissing(t *testing.T) {
	store := &mockStore{}
	store.On("Get", mock.Anything, "example.com").Return(nil, ErrNotFound)
	prompter := &mockPrompter{}
	prompter.On("Prompt", mock.Anything, "example.com", "enter credentials").
		Return(&Entry{Username: "bob", Secret: NewSecret("pw")}, nil)

	cred, err := NewAcquirer(store, prompter, nil).Acquire(context.Background(), "https://example.com/$metadata",
		AcquireOptions{Needed: true, Message: "enter credentials"})
	require.NoError(t, err)
	assert.Equal(t, KindGenericNetwork, cred.Kind)
	assert.Equal(t, "bob", cred.Username)

	store.AssertNotCalled(t, "Save", mock.Anything, mock.Anything, mock.Anything)
	prompter.AssertExpectations(t)
}

func TestAcquire_SavesWhenRequested(t *testing.T) {
	store := &mockStore{}
	store.On("Get", mock.Anything, "example.com").Return(nil, ErrNotFound)
	store.On("Save", mock.Anything, "example.com", mock.MatchedBy(func(e *Entry) bool { return e.Username == "bob" })).Return(nil)
	prompter := &mockPrompter{}
	prompter.On("Prompt", mock.Anything, "example.com", "").Return(&Entry{Username: "bob", Secret: NewSecret("pw")}, nil)

	_, err := NewAcquirer(store, prompter, nil).Acquire(context.Background(), "https://example.com/$metadata",
		AcquireOptions{Needed: true, Save: true})
	require.NoError(t, err)
	store.AssertExpectations(t)
}

func TestAcquire_SaveFailureIsNotFatal(t *testing.T) {
	store := &mockStore{}
	store.On("Get", mock.Anything, "example.com").Return(nil, ErrNotFound)
	store.On("Save", mock.Anything, "example.com", mock.Anything).Return(errors.New("disk full"))
	prompter := PromptFunc(func(ctx context.Context, host, message string) (*Entry, error) {
		return &Entry{Username: "bob", Secret: NewSecret("pw")}, nil
	})

	cred, err := NewAcquirer(store, prompter, nil).Acquire(context.Background(), "https://example.com/$metadata",
		AcquireOptions{Needed: true, Save: true})
	require.NoError(t, err)
	assert.Equal(t, "bob", cred.Username)
}

func TestAcquire_ResetEvictsFirst(t *testing.T) {
	store := &mockStore{}
	store.On("Remove", mock.Anything, "example.com").Return(nil).Once()
	store.On("Get", mock.Anything, "example.com").Return(nil, ErrNotFound)
	prompter := &mockPrompter{}
	prompter.On("Prompt", mock.Anything, "example.com", "").Return(&Entry{Username: "new", Secret: NewSecret("pw")}, nil)

	cred, err := NewAcquirer(store, prompter, nil).Acquire(context.Background(), "https://example.com/$metadata",
		AcquireOptions{Needed: true, Reset: true})
	require.NoError(t, err)
	assert.Equal(t, "new", cred.Username)
	store.AssertExpectations(t)
}

func TestAcquire_ResetIsIdempotent(t *testing.T) {
	store := NewMemoryStore()
	a := NewAcquirer(store, NoPrompt{}, nil)

	for i := 0; i < 2; i++ {
		cred, err := a.Acquire(context.Background(), "https://example.com/$metadata", AcquireOptions{Needed: true, Reset: true})
		require.NoError(t, err)
		assert.True(t, cred.IsNone())
	}
}

func TestAcquire_DeclinedIsNone(t *testing.T) {
	store := &mockStore{}
	store.On("Get", mock.Anything, "example.com").Return(nil, ErrNotFound)
	prompter := &mockPrompter{}
	prompter.On("Prompt", mock.Anything, "example.com", "").Return(nil, ErrDeclined)

	cred, err := NewAcquirer(store, prompter, nil).Acquire(context.Background(), "https://example.com/$metadata",
		AcquireOptions{Needed: true, Save: true})
	require.NoError(t, err)
	assert.True(t, cred.IsNone())
	store.AssertNotCalled(t, "Save", mock.Anything, mock.Anything, mock.Anything)
}

func TestAcquire_PromptError(t *testing.T) {
	store := &mockStore{}
	store.On("Get", mock.Anything, "example.com").Return(nil, ErrNotFound)
	prompter := &mockPrompter{}
	prompter.On("Prompt", mock.Anything, "example.com", "").Return(nil, errors.New("tty closed"))

	_, err := NewAcquirer(store, prompter, nil).Acquire(context.Background(), "https://example.com/$metadata",
		AcquireOptions{Needed: true})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tty closed")
}

func TestAcquire_StoreErrorFallsBackToPrompt(t *testing.T) {
	store := &mockStore{}
	store.On("Get", mock.Anything, "example.com").Return(nil, errors.New("keyring locked"))
	prompter := &mockPrompter{}
	prompter.On("Prompt", mock.Anything, "example.com", "").Return(&Entry{Username: "bob", Secret: NewSecret("pw")}, nil)

	cred, err := NewAcquirer(store, prompter, nil).Acquire(context.Background(), "https://example.com/$metadata",
		AcquireOptions{Needed: true})
	require.NoError(t, err)
	assert.Equal(t, "bob", cred.Username)
}

func TestAcquire_FreshSecretPerCall(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.Save(context.Background(), "example.com", &Entry{Username: "u", Secret: NewSecret("pw")}))
	a := NewAcquirer(store, nil, nil)

	first, err := a.Acquire(context.Background(), "https://example.com/a/$metadata", AcquireOptions{Needed: true})
	require.NoError(t, err)
	first.Destroy()

	second, err := a.Acquire(context.Background(), "https://example.com/b/$metadata", AcquireOptions{Needed: true})
	require.NoError(t, err)
	assert.Equal(t, "pw", second.Secret.Reveal())
}

func TestAcquirer_Forget(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.Save(context.Background(), "example.com", &Entry{Username: "u", Secret: NewSecret("pw")}))
	a := NewAcquirer(store, nil, nil)

	require.NoError(t, a.Forget(context.Background(), "https://example.com/svc"))
	_, err := store.Get(context.Background(), "example.com")
	assert.ErrorIs(t, err, ErrNotFound)
}
