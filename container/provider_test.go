package container_test

import (
	"errors"
	"testing"

	"github.com/km-arc/go-inject/container"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingProvider tracks lifecycle calls against a shared event log so
// ordering across providers can be asserted.
type recordingProvider struct {
	name        string
	events      *[]string
	registerErr error
	bootErr     error
}

func (p *recordingProvider) Register(app *container.Container) error {
	*p.events = append(*p.events, p.name+".register")
	return p.registerErr
}

func (p *recordingProvider) Boot(app *container.Container) error {
	*p.events = append(*p.events, p.name+".boot")
	return p.bootErr
}

// sinkProvider exercises a real registration flow end to end.
type sinkProvider struct {
	container.BaseProvider
}

func (p *sinkProvider) Register(app *container.Container) error {
	return app.Register(newLogSink, container.WithLifetime(container.Singleton))
}

type mailProvider struct{}

func (p *mailProvider) Register(app *container.Container) error {
	return app.RegisterAs(newSMTPMailer, (*mailer)(nil))
}

// Boot resolves a binding owned by another provider; the two-phase lifecycle
// makes that safe regardless of registration order.
func (p *mailProvider) Boot(app *container.Container) error {
	m, err := container.Resolve[mailer](app)
	if err != nil {
		return err
	}
	return m.Send("ops@example.com", "mailer online")
}

func TestProviderRegistry_RegisterThenBoot(t *testing.T) {
	t.Parallel()

	app := container.New()
	reg := container.NewProviderRegistry(app)

	require.NoError(t, reg.Register(&sinkProvider{}))
	require.NoError(t, reg.Register(&mailProvider{}))
	assert.False(t, reg.Booted())

	require.NoError(t, reg.Boot())
	assert.True(t, reg.Booted())

	sink := container.MustResolve[*logSink](app)
	assert.Equal(t, []string{"send ops@example.com"}, sink.lines)
}

func TestProviderRegistry_BootOrderFollowsRegistrationOrder(t *testing.T) {
	t.Parallel()

	var events []string
	reg := container.NewProviderRegistry(container.New())
	require.NoError(t, reg.Register(&recordingProvider{name: "a", events: &events}))
	require.NoError(t, reg.Register(&recordingProvider{name: "b", events: &events}))
	require.NoError(t, reg.Boot())

	assert.Equal(t, []string{"a.register", "b.register", "a.boot", "b.boot"}, events)
}

func TestProviderRegistry_BootIsIdempotent(t *testing.T) {
	t.Parallel()

	var events []string
	reg := container.NewProviderRegistry(container.New())
	require.NoError(t, reg.Register(&recordingProvider{name: "a", events: &events}))
	require.NoError(t, reg.Boot())
	require.NoError(t, reg.Boot())

	assert.Equal(t, []string{"a.register", "a.boot"}, events)
}

func TestProviderRegistry_DuplicateRegisterIgnored(t *testing.T) {
	t.Parallel()

	var events []string
	p := &recordingProvider{name: "a", events: &events}
	reg := container.NewProviderRegistry(container.New())
	require.NoError(t, reg.Register(p))
	require.NoError(t, reg.Register(p))

	assert.Equal(t, []string{"a.register"}, events)
	assert.Len(t, reg.Providers(), 1)
}

func TestProviderRegistry_RegisterAfterBootBootsImmediately(t *testing.T) {
	t.Parallel()

	var events []string
	reg := container.NewProviderRegistry(container.New())
	require.NoError(t, reg.Boot())
	require.NoError(t, reg.Register(&recordingProvider{name: "late", events: &events}))

	assert.Equal(t, []string{"late.register", "late.boot"}, events)
}

func TestProviderRegistry_RegisterErrorPropagates(t *testing.T) {
	t.Parallel()

	var events []string
	boom := errors.New("schema migration failed")
	reg := container.NewProviderRegistry(container.New())

	err := reg.Register(&recordingProvider{name: "bad", events: &events, registerErr: boom})
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, reg.Providers(), "a provider whose Register fails is not retained")
}

func TestProviderRegistry_BootStopsOnFirstError(t *testing.T) {
	t.Parallel()

	var events []string
	boom := errors.New("listener bind failed")
	reg := container.NewProviderRegistry(container.New())
	require.NoError(t, reg.Register(&recordingProvider{name: "a", events: &events, bootErr: boom}))
	require.NoError(t, reg.Register(&recordingProvider{name: "b", events: &events}))

	err := reg.Boot()
	assert.ErrorIs(t, err, boom)
	assert.NotContains(t, events, "b.boot")
}
