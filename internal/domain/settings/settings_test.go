package settings

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bottleworks/internal/core/apperror"
	"bottleworks/internal/core/security"
	"bottleworks/internal/core/types"
)

type fakeRepo struct {
	values map[string]string
}

func (r *fakeRepo) Get(ctx context.Context, key string) (string, error) {
	v, ok := r.values[key]
	if !ok {
		return "", apperror.NewNotFound("setting", key)
	}
	return v, nil
}

func (r *fakeRepo) Set(ctx context.Context, key, value string) error {
	if r.values == nil {
		r.values = make(map[string]string)
	}
	r.values[key] = value
	return nil
}

func adminCtx() context.Context {
	return security.WithScope(context.Background(), &security.AccessScope{
		UserID: "admin-1",
		Roles:  []security.Role{security.RoleAdmin},
	})
}

func TestAddonMaxPercent(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name   string
		stored string
		absent bool
		want   string
	}{
		{"configured value", "50", false, "50"},
		{"absent falls back to default", "", true, "100"},
		{"garbage falls back to default", "fifty", false, "100"},
		{"negative falls back to default", "-10", false, "100"},
		{"zero is a valid cap", "0", false, "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &fakeRepo{}
			if !tt.absent {
				repo.values = map[string]string{KeyAddonMaxPercent: tt.stored}
			}

			pct, err := NewService(repo).AddonMaxPercent(ctx)
			require.NoError(t, err)
			assert.True(t, pct.Equal(types.MustMoney(tt.want)), "got %s", pct)
		})
	}
}

func TestSetAddonMaxPercent(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewService(repo)

	// Admin only.
	err := svc.SetAddonMaxPercent(context.Background(), types.MustMoney("25"))
	require.Error(t, err)

	err = svc.SetAddonMaxPercent(adminCtx(), types.MustMoney("-1"))
	require.Error(t, err)

	require.NoError(t, svc.SetAddonMaxPercent(adminCtx(), types.MustMoney("25")))

	pct, err := svc.AddonMaxPercent(context.Background())
	require.NoError(t, err)
	assert.True(t, pct.Equal(types.MustMoney("25")))
}
