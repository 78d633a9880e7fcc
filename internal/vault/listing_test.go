package vault

import (
	"context"
	"io"
	"strings"
	"testing"

	"lockbox/internal/models"

	"github.com/stretchr/testify/require"
)

func uploadTestFile(t *testing.T, env *testEnv, owner *models.User, name, mime, data string, parent *models.Node) *models.Node {
	t.Helper()
	node, err := env.svc.UploadFile(context.Background(), owner.ID, UploadParams{
		Name:     name,
		MimeType: mime,
		Size:     int64(len(data)),
		Data:     strings.NewReader(data),
		ParentID: idOf(parent),
	})
	require.NoError(t, err)
	return node
}

func TestUploadAndOpenContent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	file := uploadTestFile(t, env, env.alice, "doc.pdf", "application/pdf", "%PDF-1.4", nil)
	require.Equal(t, models.CategoryPDF, file.Category())
	require.NotNil(t, file.StorageRef)

	node, rc, err := env.svc.OpenContent(ctx, env.alice.ID, file.ID, "")
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.Equal(t, "%PDF-1.4", string(data))
	require.Equal(t, file.ID, node.ID)

	note := env.note(t, env.alice, "n", "inline", nil)
	_, rc, err = env.svc.OpenContent(ctx, env.alice.ID, note.ID, "")
	require.NoError(t, err)
	data, err = io.ReadAll(rc)
	require.NoError(t, err)
	rc.Close()
	require.Equal(t, "inline", string(data))

	folder := env.folder(t, env.alice, "f", nil)
	_, _, err = env.svc.OpenContent(ctx, env.alice.ID, folder.ID, "")
	require.ErrorIs(t, err, ErrValidation)
}

func TestUploadIntoMissingFolder(t *testing.T) {
	env := newTestEnv(t)

	missing := "missing"
	_, err := env.svc.UploadFile(context.Background(), env.alice.ID, UploadParams{
		Name: "x.png", MimeType: "image/png", Data: strings.NewReader("x"), ParentID: &missing,
	})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDuplicate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	folder := env.folder(t, env.alice, "f", nil)
	file := uploadTestFile(t, env, env.alice, "cat.png", "image/png", "meow", folder)

	dup, err := env.svc.Duplicate(ctx, env.alice.ID, file.ID, "")
	require.NoError(t, err)
	require.Equal(t, "Copy of cat.png", dup.Name)
	require.Equal(t, folder.ID, *dup.ParentID)
	require.NotEqual(t, *file.StorageRef, *dup.StorageRef)

	_, rc, err := env.svc.OpenContent(ctx, env.alice.ID, dup.ID, "")
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	rc.Close()
	require.Equal(t, "meow", string(data))

	note := env.note(t, env.alice, "n", "text", folder)
	env.share(t, note, env.bob, models.PermissionView)
	copied, err := env.svc.Duplicate(ctx, env.bob.ID, note.ID, "")
	require.NoError(t, err)
	require.Equal(t, env.bob.ID, copied.OwnerID)
	require.Nil(t, copied.ParentID)
	require.Equal(t, "text", *copied.Content)

	_, err = env.svc.Duplicate(ctx, env.alice.ID, folder.ID, "")
	require.ErrorIs(t, err, ErrValidation)
}

func TestRenderNote(t *testing.T) {
	env := newTestEnv(t)

	note := env.note(t, env.alice, "n", "# Title", nil)
	html, err := env.svc.RenderNote(context.Background(), env.alice.ID, note.ID, "")
	require.NoError(t, err)
	require.Contains(t, string(html), "<h1")
	require.Contains(t, string(html), "Title")
}

func TestListChildren(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	folder := env.folder(t, env.alice, "shared", nil)
	note := env.note(t, env.alice, "b-note", "text", folder)
	env.folder(t, env.alice, "z-folder", folder)

	_, err := env.svc.Lock(ctx, env.alice.ID, note.ID, LockRequest{Secret: "pw", Reason: "tax papers"})
	require.NoError(t, err)

	root, err := env.svc.ListChildren(ctx, env.alice.ID, nil, "")
	require.NoError(t, err)
	require.Len(t, root, 1)

	children, err := env.svc.ListChildren(ctx, env.alice.ID, idOf(folder), "")
	require.NoError(t, err)
	require.Len(t, children, 2)
	require.Equal(t, "z-folder", children[0].Name)
	require.Equal(t, "text", *children[1].Content)
	require.Equal(t, "tax papers", children[1].Lock.Reason)

	_, err = env.svc.ListChildren(ctx, env.bob.ID, idOf(folder), "")
	require.ErrorIs(t, err, ErrForbidden)

	env.share(t, folder, env.bob, models.PermissionView)
	children, err = env.svc.ListChildren(ctx, env.bob.ID, idOf(folder), "")
	require.NoError(t, err)
	require.Len(t, children, 2)
	require.Equal(t, "b-note", children[1].Name)
	require.Nil(t, children[1].Content)
	require.Nil(t, children[1].Lock)

	empty, err := env.svc.ListChildren(ctx, env.bob.ID, nil, "")
	require.NoError(t, err)
	require.Empty(t, empty)
}

func TestListByCategory(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	folder := env.folder(t, env.alice, "f", nil)
	env.note(t, env.alice, "Groceries", "milk and eggs", nil)
	env.note(t, env.alice, "Todo", "buy MILK", folder)
	env.note(t, env.alice, "Ideas", "nothing", nil)
	uploadTestFile(t, env, env.alice, "milk.png", "image/png", "x", nil)

	notes, err := env.svc.ListByCategory(ctx, env.alice.ID, "note", nil, "")
	require.NoError(t, err)
	require.Len(t, notes, 3)

	notes, err = env.svc.ListByCategory(ctx, env.alice.ID, "note", nil, "milk")
	require.NoError(t, err)
	require.Len(t, notes, 2)

	notes, err = env.svc.ListByCategory(ctx, env.alice.ID, "note", idOf(folder), "milk")
	require.NoError(t, err)
	require.Len(t, notes, 1)
	require.Equal(t, "Todo", notes[0].Name)

	images, err := env.svc.ListByCategory(ctx, env.alice.ID, "image", nil, "MILK")
	require.NoError(t, err)
	require.Len(t, images, 1)

	_, err = env.svc.ListByCategory(ctx, env.alice.ID, "video", nil, "")
	require.ErrorIs(t, err, ErrValidation)

	_, err = env.svc.ListByCategory(ctx, env.bob.ID, "note", idOf(folder), "")
	require.ErrorIs(t, err, ErrForbidden)
}

func TestListOrganized(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.folder(t, env.alice, "f", nil)
	env.note(t, env.alice, "long", strings.Repeat("ą", 150), nil)
	uploadTestFile(t, env, env.alice, "a.jpg", "image/jpeg", "x", nil)
	uploadTestFile(t, env, env.alice, "a.pdf", "application/pdf", "x", nil)
	uploadTestFile(t, env, env.alice, "a.zip", "application/zip", "x", nil)

	org, err := env.svc.ListOrganized(ctx, env.alice.ID)
	require.NoError(t, err)
	require.Len(t, org.Images, 1)
	require.Len(t, org.PDFs, 1)
	require.Len(t, org.Other, 1)
	require.Len(t, org.Notes, 1)
	require.Nil(t, org.Notes[0].Content)
	require.Equal(t, strings.Repeat("ą", 100), org.Notes[0].Preview)
}

func TestListFolders(t *testing.T) {
	env := newTestEnv(t)

	env.folder(t, env.alice, "a", nil)
	env.folder(t, env.alice, "b", nil)
	env.note(t, env.alice, "n", "", nil)

	folders, err := env.svc.ListFolders(context.Background(), env.alice.ID)
	require.NoError(t, err)
	require.Len(t, folders, 2)
	for _, f := range folders {
		require.True(t, f.IsFolder())
	}
}
