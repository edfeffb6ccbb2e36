package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"CuteTutor/internal/auth"
	"CuteTutor/internal/models"
	"CuteTutor/internal/report"
	"CuteTutor/internal/session"
	"CuteTutor/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// 2024-05-12 is a Sunday, week 19 under %U.
var fixedNow = time.Date(2024, 5, 12, 10, 30, 0, 0, time.UTC)

type fakeAsker struct {
	mu      sync.Mutex
	reply   string
	err     error
	prompts []string
}

func (f *fakeAsker) Ask(_ context.Context, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func (f *fakeAsker) set(reply string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reply, f.err = reply, err
}

func (f *fakeAsker) lastPrompt() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.prompts) == 0 {
		return ""
	}
	return f.prompts[len(f.prompts)-1]
}

type fakeSpeaker struct{ text string }

func (f *fakeSpeaker) Synthesize(_ context.Context, text string) ([]byte, error) {
	f.text = text
	return []byte("ID3-mp3"), nil
}

type fakeTranscriber struct{ got []byte }

func (f *fakeTranscriber) Transcribe(_ context.Context, audio []byte) (string, error) {
	f.got = audio
	return "photosynthesis", nil
}

type testServer struct {
	router    *gin.Engine
	asker     *fakeAsker
	store     *storage.JSONFile
	reportDir string
}

type serverOption func(*Deps, *RouterOptions)

func withVoice(s Speaker, tr Transcriber) serverOption {
	return func(d *Deps, _ *RouterOptions) {
		d.Speaker = s
		d.Transcriber = tr
	}
}

func withReportDir(dir string) serverOption {
	return func(d *Deps, _ *RouterOptions) {
		d.Reports = report.NewWriter(dir, "")
	}
}

func withInviteCode(code string) serverOption {
	return func(_ *Deps, o *RouterOptions) {
		o.InviteCode = code
	}
}

func newTestServer(t *testing.T, opts ...serverOption) *testServer {
	t.Helper()
	dir := t.TempDir()

	store, err := storage.NewJSONFile(filepath.Join(dir, "users.json"), zap.NewNop())
	require.NoError(t, err)

	ts := &testServer{
		asker:     &fakeAsker{reply: "  Fractions are parts of a whole.  "},
		store:     store,
		reportDir: filepath.Join(dir, "reports"),
	}
	deps := Deps{
		Repo:     storage.NewRepository(store, zap.NewNop()),
		LLM:      ts.asker,
		Reports:  report.NewWriter(ts.reportDir, ""),
		Sessions: session.NewManager(time.Hour),
		Tokens:   auth.NewTokenManager("test-secret", time.Hour),
		Logger:   zap.NewNop(),
		Now:      func() time.Time { return fixedNow },
	}
	routerOpts := RouterOptions{Logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&deps, &routerOpts)
	}

	ts.router = NewRouter(New(deps), routerOpts)
	return ts
}

func (ts *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func (ts *testServer) signupAndLogin(t *testing.T, username, password string) string {
	t.Helper()
	w := ts.do(t, http.MethodPost, "/signup", "", SignupRequest{Username: username, Password: password})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = ts.do(t, http.MethodPost, "/login", "", LoginRequest{Username: username, Password: password})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp LoginSuccessResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestSignupAndLogin(t *testing.T) {
	ts := newTestServer(t)
	ts.signupAndLogin(t, "alice", "pw1")

	tests := []struct {
		name     string
		path     string
		body     any
		wantCode int
		wantErr  string
	}{
		{"duplicate signup", "/signup", SignupRequest{Username: "alice", Password: "other"}, http.StatusConflict, "Username already exists."},
		{"blank signup", "/signup", SignupRequest{Username: "  ", Password: "pw"}, http.StatusBadRequest, "cannot be empty"},
		{"wrong password", "/login", LoginRequest{Username: "alice", Password: "nope"}, http.StatusUnauthorized, "Invalid credentials"},
		{"unknown user", "/login", LoginRequest{Username: "bob", Password: "pw1"}, http.StatusUnauthorized, "Invalid credentials"},
		{"empty login", "/login", LoginRequest{}, http.StatusUnauthorized, "Invalid credentials"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := ts.do(t, http.MethodPost, tt.path, "", tt.body)
			assert.Equal(t, tt.wantCode, w.Code)
			assert.Contains(t, w.Body.String(), tt.wantErr)
		})
	}

	// 중복 가입 시도는 기존 비밀번호를 바꾸지 않음
	w := ts.do(t, http.MethodPost, "/login", "", LoginRequest{Username: "alice", Password: "pw1"})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSignup_RejectsPathLikeUsernames(t *testing.T) {
	ts := newTestServer(t)
	for _, name := range []string{"..", ".", "../alice", `a\b`} {
		w := ts.do(t, http.MethodPost, "/signup", "", SignupRequest{Username: name, Password: "pw"})
		assert.Equal(t, http.StatusBadRequest, w.Code, name)
	}
	assert.Empty(t, ts.store.Load(context.Background()))
}

// 이전 버전에서 저장된 ".." 계정도 사용자 디렉토리 밖의 파일을 읽을 수 없어야 함
func TestDownloadReport_DotDotUserCannotEscape(t *testing.T) {
	ts := newTestServer(t)
	ts.signupAndLogin(t, "alice", "pw1")

	users := ts.store.Load(context.Background())
	users[".."] = &models.User{Password: "legacy", TutorHistory: []models.TutorSession{}, Reports: []models.Report{}}
	require.NoError(t, ts.store.Save(context.Background(), users))

	w := ts.do(t, http.MethodPost, "/login", "", LoginRequest{Username: "..", Password: "legacy"})
	require.Equal(t, http.StatusOK, w.Code)
	token := decode[LoginSuccessResponse](t, w).Token

	w = ts.do(t, http.MethodGet, "/api/reports/files/users.json", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.NotContains(t, w.Body.String(), "password")
	assert.NotContains(t, w.Body.String(), "alice")
}

func TestSignup_InviteCode(t *testing.T) {
	ts := newTestServer(t, withInviteCode("letmein"))

	w := ts.do(t, http.MethodPost, "/signup", "", SignupRequest{Username: "alice", Password: "pw"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	raw, _ := json.Marshal(SignupRequest{Username: "alice", Password: "pw"})
	req := httptest.NewRequest(http.MethodPost, "/signup", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Invite-Code", "letmein")
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	ts := newTestServer(t)
	for _, path := range []string{"/api/profile", "/api/tutor/history", "/api/reports", "/api/progress"} {
		w := ts.do(t, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}
}

func TestProfile(t *testing.T) {
	ts := newTestServer(t)
	token := ts.signupAndLogin(t, "alice", "pw1")

	w := ts.do(t, http.MethodGet, "/api/profile", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, ProfileResponse{Username: "alice"}, decode[ProfileResponse](t, w))

	update := map[string]string{"student_name": "Mina", "parent_name": "Jisoo", "parent_phone": "010"}
	w = ts.do(t, http.MethodPut, "/api/profile", token, update)
	require.Equal(t, http.StatusOK, w.Code)

	w = ts.do(t, http.MethodGet, "/api/profile", token, nil)
	got := decode[ProfileResponse](t, w)
	assert.Equal(t, "Mina", got.StudentName)
	assert.Equal(t, "Jisoo", got.ParentName)
	assert.Equal(t, "010", got.ParentPhone)

	u := ts.store.Load(context.Background())["alice"]
	assert.Equal(t, "Mina", u.StudentName)
}

func TestLogoutInvalidatesSession(t *testing.T) {
	ts := newTestServer(t)
	token := ts.signupAndLogin(t, "alice", "pw1")

	w := ts.do(t, http.MethodPost, "/api/logout", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = ts.do(t, http.MethodGet, "/api/profile", token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestTutorFlow(t *testing.T) {
	ts := newTestServer(t)
	token := ts.signupAndLogin(t, "alice", "pw1")

	w := ts.do(t, http.MethodPost, "/api/learning-style", token, LearningStyleRequest{Visual: 2, Auditory: 5, Kinesthetic: 5})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Auditory", decode[LearningStyleResponse](t, w).Style)

	ts.asker.set("Fractions are parts of a whole.", nil)
	w = ts.do(t, http.MethodPost, "/api/tutor", token, TutorRequest{Topic: " Fractions ", Level: "Beginner"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	assert.Equal(t,
		"You are Cute Tutor. Explain 'Fractions' to a Beginner student using Auditory approach (story-style explanations). Make it fun and clear.",
		ts.asker.lastPrompt())

	w = ts.do(t, http.MethodGet, "/api/tutor/history", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	history := decode[TutorHistoryResponse](t, w).History
	require.Len(t, history, 1)
	assert.Equal(t, "Fractions", history[0].Topic)
	assert.Equal(t, "Auditory", history[0].Style)
	assert.Equal(t, "Fractions are parts of a whole.", history[0].Content)
	assert.Equal(t, "2024-05-12", history[0].Date)

	w = ts.do(t, http.MethodGet, "/api/progress", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	progress := decode[ProgressResponse](t, w).Progress
	require.Len(t, progress, 1)
	assert.Equal(t, "2024-W19", progress[0].Week)
	assert.Equal(t, 1, progress[0].Topics)
}

func TestTutor_DefaultsToVisual(t *testing.T) {
	ts := newTestServer(t)
	token := ts.signupAndLogin(t, "alice", "pw1")

	w := ts.do(t, http.MethodPost, "/api/tutor", token, TutorRequest{Topic: "Plants"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, ts.asker.lastPrompt(), "a Beginner student using Visual approach (diagrams & vivid examples)")
}

func TestTutor_RejectsBadInput(t *testing.T) {
	ts := newTestServer(t)
	token := ts.signupAndLogin(t, "alice", "pw1")

	w := ts.do(t, http.MethodPost, "/api/tutor", token, TutorRequest{Topic: "   "})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, http.MethodPost, "/api/tutor", token, TutorRequest{Topic: "Plants", Level: "Expert"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, http.MethodPost, "/api/learning-style", token, LearningStyleRequest{Visual: 0, Auditory: 3, Kinesthetic: 3})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	assert.Empty(t, ts.asker.prompts)
}

func TestLLMFailureLeavesStoreUnchanged(t *testing.T) {
	ts := newTestServer(t)
	token := ts.signupAndLogin(t, "alice", "pw1")
	ts.asker.set("", errors.New("upstream down"))

	w := ts.do(t, http.MethodPost, "/api/tutor", token, TutorRequest{Topic: "Plants"})
	assert.Equal(t, http.StatusBadGateway, w.Code)

	w = ts.do(t, http.MethodPost, "/api/reports", token, map[string]string{})
	assert.Equal(t, http.StatusBadGateway, w.Code)

	u := ts.store.Load(context.Background())["alice"]
	assert.Empty(t, u.TutorHistory)
	assert.Empty(t, u.Reports)
	_, err := os.Stat(filepath.Join(ts.reportDir, "alice"))
	assert.True(t, os.IsNotExist(err))
}

func TestCounselor(t *testing.T) {
	ts := newTestServer(t)
	token := ts.signupAndLogin(t, "alice", "pw1")

	ts.asker.set(" Why do you feel sad? ", nil)
	w := ts.do(t, http.MethodPost, "/api/counselor", token, CounselorRequest{Message: "I feel sad"})
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[CounselorResponse](t, w)
	assert.Equal(t, "Why do you feel sad?", resp.Reply)
	require.Len(t, resp.History, 2)
	assert.Equal(t, "You are Cute Tutor, a gentle counselor.\nChild: I feel sad\nCute Tutor:", ts.asker.lastPrompt())

	ts.asker.set("That sounds hard.", nil)
	w = ts.do(t, http.MethodPost, "/api/counselor", token, CounselorRequest{Message: "My friend left"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t,
		"You are Cute Tutor, a gentle counselor.\nChild: I feel sad\nCute Tutor: Why do you feel sad?\nChild: My friend left\nCute Tutor:",
		ts.asker.lastPrompt())

	// 실패한 턴은 기록에 남지 않음
	ts.asker.set("", errors.New("boom"))
	w = ts.do(t, http.MethodPost, "/api/counselor", token, CounselorRequest{Message: "hello?"})
	assert.Equal(t, http.StatusBadGateway, w.Code)

	w = ts.do(t, http.MethodPost, "/api/counselor", token, CounselorRequest{Message: " "})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, http.MethodDelete, "/api/counselor", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	ts.asker.set("Hi!", nil)
	w = ts.do(t, http.MethodPost, "/api/counselor", token, CounselorRequest{Message: "hello"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[CounselorResponse](t, w).History, 2)
	assert.Equal(t, "You are Cute Tutor, a gentle counselor.\nChild: hello\nCute Tutor:", ts.asker.lastPrompt())
}

func TestCounselorHistoryIsPerSession(t *testing.T) {
	ts := newTestServer(t)
	first := ts.signupAndLogin(t, "alice", "pw1")

	w := ts.do(t, http.MethodPost, "/api/counselor", first, CounselorRequest{Message: "I feel sad"})
	require.Equal(t, http.StatusOK, w.Code)

	w = ts.do(t, http.MethodPost, "/login", "", LoginRequest{Username: "alice", Password: "pw1"})
	require.Equal(t, http.StatusOK, w.Code)
	second := decode[LoginSuccessResponse](t, w).Token

	w = ts.do(t, http.MethodPost, "/api/counselor", second, CounselorRequest{Message: "hello"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[CounselorResponse](t, w).History, 2)
}

func TestReportFlow(t *testing.T) {
	ts := newTestServer(t)
	token := ts.signupAndLogin(t, "alice", "pw1")

	w := ts.do(t, http.MethodPut, "/api/profile", token, map[string]string{"student_name": "Mina", "parent_name": "Jisoo", "parent_phone": "010"})
	require.Equal(t, http.StatusOK, w.Code)
	w = ts.do(t, http.MethodPost, "/api/tutor", token, TutorRequest{Topic: "Fractions", Level: "Intermediate"})
	require.Equal(t, http.StatusOK, w.Code)

	ts.asker.set("\nWeekly report for Mina\n\n- Fractions went well\n\nBest regards, Cute Tutor.\n", nil)
	w = ts.do(t, http.MethodPost, "/api/reports", token, map[string]string{"emotions": "Calm and happy"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	generated := decode[GenerateReportResponse](t, w)
	assert.Equal(t, "2024-05-12", generated.Date)
	assert.Equal(t, "alice_20240512_Report.pdf", generated.Filename)
	assert.Equal(t, "/api/reports/files/alice_20240512_Report.pdf", generated.DownloadURL)
	assert.Equal(t, "Weekly report for Mina\n\n- Fractions went well\n\nBest regards, Cute Tutor.", generated.Report)

	prompt := ts.asker.lastPrompt()
	assert.Contains(t, prompt, "for parent Jisoo about Mina (contact 010). Date: 12 May 2024")
	assert.Contains(t, prompt, "- Fractions (Intermediate): ")
	assert.Contains(t, prompt, "Calm and happy")
	assert.Contains(t, prompt, "No issues noted.")

	w = ts.do(t, http.MethodGet, "/api/reports", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"2024-05-12"}, decode[ReportListResponse](t, w).Reports)

	w = ts.do(t, http.MethodGet, "/api/reports/2024-05-12", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Fractions went well")

	w = ts.do(t, http.MethodGet, "/api/reports/2024-01-01", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = ts.do(t, http.MethodGet, generated.DownloadURL, token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF")))

	w = ts.do(t, http.MethodGet, "/api/reports/files/bob_20240512_Report.pdf", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestReport_PDFFailureKeepsRecord(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	ts := newTestServer(t, withReportDir(blocker))
	token := ts.signupAndLogin(t, "alice", "pw1")
	ts.asker.set("report body", nil)

	w := ts.do(t, http.MethodPost, "/api/reports", token, map[string]string{})
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	u := ts.store.Load(context.Background())["alice"]
	require.Len(t, u.Reports, 1)
	assert.Equal(t, "report body", u.Reports[0].Report)
}

func TestVoiceDisabled(t *testing.T) {
	ts := newTestServer(t)
	token := ts.signupAndLogin(t, "alice", "pw1")

	w := ts.do(t, http.MethodGet, "/api/tutor/history/0/audio", token, nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = ts.do(t, http.MethodPost, "/api/voice/transcribe", token, nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestLessonAudio(t *testing.T) {
	speaker := &fakeSpeaker{}
	ts := newTestServer(t, withVoice(speaker, &fakeTranscriber{}))
	token := ts.signupAndLogin(t, "alice", "pw1")

	ts.asker.set("Leaves make food from light.", nil)
	w := ts.do(t, http.MethodPost, "/api/tutor", token, TutorRequest{Topic: "Plants"})
	require.Equal(t, http.StatusOK, w.Code)

	w = ts.do(t, http.MethodGet, "/api/tutor/history/0/audio", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "audio/mpeg", w.Header().Get("Content-Type"))
	assert.Equal(t, "ID3-mp3", w.Body.String())
	assert.Equal(t, "Leaves make food from light.", speaker.text)

	w = ts.do(t, http.MethodGet, "/api/tutor/history/3/audio", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = ts.do(t, http.MethodGet, "/api/tutor/history/x/audio", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTranscribe(t *testing.T) {
	transcriber := &fakeTranscriber{}
	ts := newTestServer(t, withVoice(&fakeSpeaker{}, transcriber))
	token := ts.signupAndLogin(t, "alice", "pw1")

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("audio", "topic.wav")
	require.NoError(t, err)
	_, err = part.Write([]byte("RIFF-fake-wav"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/voice/transcribe", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "photosynthesis", decode[TranscribeResponse](t, w).Text)
	assert.Equal(t, []byte("RIFF-fake-wav"), transcriber.got)
}
