package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocal_SaveGetRoundTrip(t *testing.T) {
	local, err := NewLocal(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, local.Save(ctx, "brands/acme/design-system.html", []byte("<html></html>")))

	data, err := local.Get(ctx, "brands/acme/design-system.html")
	require.NoError(t, err)
	assert.Equal(t, "<html></html>", string(data))
}

func TestLocal_GetMissing(t *testing.T) {
	local, err := NewLocal(t.TempDir())
	require.NoError(t, err)

	_, err = local.Get(context.Background(), "missing.html")
	require.Error(t, err)
}

func TestLocal_Exists(t *testing.T) {
	local, err := NewLocal(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	ok, err := local.Exists(ctx, "a/b.txt")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, local.Save(ctx, "a/b.txt", []byte("x")))
	ok, err = local.Exists(ctx, "a/b.txt")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLocal_DeleteIsIdempotent(t *testing.T) {
	local, err := NewLocal(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, local.Save(ctx, "a/b.txt", []byte("x")))
	require.NoError(t, local.Delete(ctx, "a/b.txt"))
	require.NoError(t, local.Delete(ctx, "a/b.txt"))

	ok, err := local.Exists(ctx, "a/b.txt")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLocal_List(t *testing.T) {
	local, err := NewLocal(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, local.Save(ctx, "brands/acme/report-template.html", []byte("r")))
	require.NoError(t, local.Save(ctx, "brands/acme/slides-template.html", []byte("s")))
	require.NoError(t, local.Save(ctx, "documents/1/output.pdf", []byte("p")))

	paths, err := local.List(ctx, "brands/acme")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		"brands/acme/report-template.html",
		"brands/acme/slides-template.html",
	}, paths)
}

func TestLocal_ListMissingPrefix(t *testing.T) {
	local, err := NewLocal(t.TempDir())
	require.NoError(t, err)

	paths, err := local.List(context.Background(), "nope")
	require.NoError(t, err)
	assert.Empty(t, paths)
}

func TestLocal_PublicURL(t *testing.T) {
	local, err := NewLocal(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "/api/storage/brands/acme/design-system.html", local.PublicURL("brands/acme/design-system.html"))
}

func TestNew_UnknownProvider(t *testing.T) {
	_, err := New(Config{Provider: "ftp"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown storage provider")
}
