package api

import (
	"net/http"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/phrazzld/edumind-api/internal/api/shared"
	"github.com/phrazzld/edumind-api/internal/domain"
	"github.com/phrazzld/edumind-api/internal/service"
	"github.com/phrazzld/edumind-api/internal/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProjectHandlerLifecycle(t *testing.T) {
	f := newAPIFixture(t)
	userID := uuid.New()
	token := f.token(t, userID)

	w := f.upload(t, http.MethodPost, "/api/projects/upload_file/", token, "notes.txt", []byte("Cells divide."))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	uploaded := decodeBody[service.UploadedFile](t, w)
	assert.True(t, strings.HasPrefix(uploaded.Key, "uploads/"+userID.String()+"/"))

	w = f.do(t, http.MethodPost, "/api/projects/", token, CreateProjectRequest{Name: "Mitosis", FileKey: uploaded.Key})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	project := decodeBody[ProjectResponse](t, w)
	assert.Equal(t, "Mitosis", project.Name)
	assert.True(t, strings.HasSuffix(project.OriginalFileName, "notes.txt"))

	w = f.do(t, http.MethodGet, "/api/projects/", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeBody[[]ProjectResponse](t, w), 1)

	w = f.do(t, http.MethodGet, "/api/projects/"+project.ID.String()+"/", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	f.expectTx()
	w = f.upload(t, http.MethodPut, "/api/projects/"+project.ID.String()+"/update_file/", token, "v2.txt", []byte("Cells divide twice."))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := decodeBody[ProjectResponse](t, w)
	assert.NotEqual(t, uploaded.Key, updated.FileKey)
	assert.False(t, f.objects.Has(uploaded.Key))

	f.expectTx()
	w = f.do(t, http.MethodDelete, "/api/projects/"+project.ID.String()+"/", token, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = f.do(t, http.MethodGet, "/api/projects/"+project.ID.String()+"/", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	require.NoError(t, f.sqlMock.ExpectationsWereMet())
}

func TestProjectHandlerUploadRejections(t *testing.T) {
	f := newAPIFixture(t)
	token := f.token(t, uuid.New())

	tests := []struct {
		name     string
		fileName string
		data     []byte
		wantCode int
	}{
		{"unsupported type", "slides.pptx", []byte("PK"), http.StatusBadRequest},
		{"empty file", "notes.txt", nil, http.StatusBadRequest},
		{"too large", "notes.txt", []byte(strings.Repeat("x", testMaxUpload+1)), http.StatusRequestEntityTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.upload(t, http.MethodPost, "/api/projects/upload_file/", token, tt.fileName, tt.data)
			assert.Equal(t, tt.wantCode, w.Code, w.Body.String())
		})
	}

	t.Run("not multipart", func(t *testing.T) {
		w := f.do(t, http.MethodPost, "/api/projects/upload_file/", token, `{"file":"x"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unauthenticated", func(t *testing.T) {
		w := f.do(t, http.MethodPost, "/api/projects/upload_file/", "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestProjectHandlerCreateForeignKey(t *testing.T) {
	f := newAPIFixture(t)
	key := "uploads/" + uuid.NewString() + "/1_notes.txt"
	w := f.do(t, http.MethodPost, "/api/projects/", f.token(t, uuid.New()), CreateProjectRequest{Name: "Theft", FileKey: key})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestProjectHandlerInvalidID(t *testing.T) {
	f := newAPIFixture(t)
	w := f.do(t, http.MethodGet, "/api/projects/not-a-uuid/", f.token(t, uuid.New()), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestProjectHandlerGenerateContent(t *testing.T) {
	f := newAPIFixture(t)
	project, token := f.project(t, 5)
	path := "/api/projects/" + project.ID.String() + "/generate_content/"

	f.expectTx()
	w := f.do(t, http.MethodPost, path, token, `{"content_type":"presentation","slides_count":8}`)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	accepted := decodeBody[JobAcceptedResponse](t, w)
	assert.Equal(t, "Content generation started", accepted.Message)

	emitted := f.emitter.Emitted()
	require.Len(t, emitted, 1)
	assert.Equal(t, accepted.TaskID, emitted[0].ID)
	assert.Equal(t, task.TaskTypeContentGeneration, emitted[0].Type)
	stored := f.contents.Content(accepted.ContentID)
	require.NotNil(t, stored)
	assert.Equal(t, domain.TaskStatusPending, stored.Status)
	assert.JSONEq(t, `{"slides_count":8,"include_images":false}`, string(stored.Options))
	require.NoError(t, f.sqlMock.ExpectationsWereMet())
}

func TestProjectHandlerGenerateContentRejections(t *testing.T) {
	tests := []struct {
		name     string
		balance  float64
		body     string
		foreign  bool
		wantCode int
		wantMsg  string
	}{
		{"unknown type", 5, `{"content_type":"VIDEO"}`, false, http.StatusBadRequest, "invalid content type"},
		{"missing type", 5, `{"slides_count":5}`, false, http.StatusBadRequest, "Invalid content_type: required field"},
		{"option out of range", 5, `{"content_type":"QUIZ","questions_count":99}`, false, http.StatusBadRequest, "questions_count"},
		{"insufficient tokens", 0.01, `{"content_type":"QUIZ"}`, false, http.StatusPaymentRequired, "Insufficient tokens"},
		{"foreign project", 5, `{"content_type":"QUIZ"}`, true, http.StatusNotFound, "Project not found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAPIFixture(t)
			project, token := f.project(t, tt.balance)
			if tt.foreign {
				token = f.token(t, uuid.New())
			}

			w := f.do(t, http.MethodPost, "/api/projects/"+project.ID.String()+"/generate_content/", token, tt.body)
			assert.Equal(t, tt.wantCode, w.Code)
			assert.Contains(t, decodeBody[shared.ErrorResponse](t, w).Error, tt.wantMsg)
			assert.Empty(t, f.contents.Contents)
		})
	}
}

func TestProjectHandlerPodcastEndpoints(t *testing.T) {
	f := newAPIFixture(t)
	project, token := f.project(t, 5)
	base := "/api/projects/" + project.ID.String()

	w := f.do(t, http.MethodPost, base+"/generate_podcast_script/", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	script := decodeBody[domain.PodcastScript](t, w)
	assert.Equal(t, "Membranes", script.Title)
	assert.InDelta(t, 4.98, f.profiles.Balance(project.UserID), 1e-9)

	w = f.do(t, http.MethodPost, base+"/generate_podcast_script/", token, `{"content_focus":"everything"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	f.expectTx()
	w = f.do(t, http.MethodPost, base+"/generate_podcast_audio/", token, `{"script_text":"Welcome back.","voice_gender":"male"}`)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	accepted := decodeBody[JobAcceptedResponse](t, w)
	assert.Equal(t, domain.ContentTypePodcast, f.contents.Content(accepted.ContentID).ContentType)

	w = f.do(t, http.MethodPost, base+"/generate_podcast_audio/", token, `{"voice_gender":"male"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code, "script_text is required")
	require.NoError(t, f.sqlMock.ExpectationsWereMet())
}
