package database

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"lite-drive/internal/models"
)

func createTestFile(t *testing.T, ownerID int64, id string, sizeMB float64) *models.File {
	t.Helper()
	file, err := testStore.CreateFile(context.Background(), CreateFileParams{
		ID:               id,
		OwnerID:          ownerID,
		Filename:         id + ".txt",
		OriginalFilename: "notes.txt",
		Path:             fmt.Sprintf("/data/uploads/%d/%s.txt", ownerID, id),
		FileType:         "document",
		SizeMB:           sizeMB,
		MimeType:         "text/plain",
	})
	require.NoError(t, err)
	require.NotNil(t, file)
	return file
}

func TestCreateAndGetFile(t *testing.T) {
	ctx := context.Background()
	owner := createTestUser(t, "files-owner@example.com", 1024)
	other := createTestUser(t, "files-other@example.com", 1024)

	preview := "/data/previews/x/y_preview.jpg"
	created, err := testStore.CreateFile(ctx, CreateFileParams{
		ID:               "getfile0000000000001",
		OwnerID:          owner.ID,
		Filename:         "20240101_120000_abcdef12.png",
		OriginalFilename: "holiday.png",
		Path:             "/data/uploads/files-owner/20240101_120000_abcdef12.png",
		PreviewPath:      &preview,
		FileType:         "image",
		SizeMB:           5.0,
		MimeType:         "image/png",
	})
	require.NoError(t, err)
	require.Equal(t, "holiday.png", created.OriginalFilename)
	require.True(t, created.HasPreview())
	require.NotZero(t, created.CreatedAt)

	found, err := testStore.GetFile(ctx, created.ID, owner.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	require.Equal(t, 5.0, found.SizeMB)

	foreign, err := testStore.GetFile(ctx, created.ID, other.ID)
	require.NoError(t, err)
	require.Nil(t, foreign, "a foreign owner must not see the record")

	missing, err := testStore.GetFile(ctx, "doesnotexist00000000", owner.ID)
	require.NoError(t, err)
	require.Nil(t, missing)
}

func TestCreateFile_DuplicatePath(t *testing.T) {
	ctx := context.Background()
	owner := createTestUser(t, "dup-path@example.com", 1024)
	first := createTestFile(t, owner.ID, "duppath0000000000001", 1)

	_, err := testStore.CreateFile(ctx, CreateFileParams{
		ID:               "duppath0000000000002",
		OwnerID:          owner.ID,
		Filename:         first.Filename,
		OriginalFilename: "copy.txt",
		Path:             first.Path,
		FileType:         "document",
		SizeMB:           1,
		MimeType:         "text/plain",
	})
	require.ErrorIs(t, err, ErrDuplicateFilePath)
}

func TestListAndDeleteFiles(t *testing.T) {
	ctx := context.Background()
	owner := createTestUser(t, "list-files@example.com", 1024)
	a := createTestFile(t, owner.ID, "listfiles00000000001", 1)
	createTestFile(t, owner.ID, "listfiles00000000002", 2)

	files, err := testStore.ListFiles(ctx, owner.ID, 100, 0)
	require.NoError(t, err)
	require.Len(t, files, 2)

	deleted, err := testStore.DeleteFile(ctx, a.ID, owner.ID+1000)
	require.NoError(t, err)
	require.False(t, deleted, "delete is scoped to the owner")

	deleted, err = testStore.DeleteFile(ctx, a.ID, owner.ID)
	require.NoError(t, err)
	require.True(t, deleted)

	files, err = testStore.ListFiles(ctx, owner.ID, 100, 0)
	require.NoError(t, err)
	require.Len(t, files, 1)

	empty, err := testStore.ListFiles(ctx, owner.ID+1000, 100, 0)
	require.NoError(t, err)
	require.NotNil(t, empty)
	require.Empty(t, empty)
}
