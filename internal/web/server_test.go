package web

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jevicarn/site/internal/auth"
	"github.com/jevicarn/site/internal/gallery"
	"github.com/jevicarn/site/internal/store"
)

type testSite struct {
	mux   *http.ServeMux
	store *store.SQLiteStore
	auth  *auth.Authenticator
}

func setupSite(t *testing.T) *testSite {
	t.Helper()

	dir := t.TempDir()
	s, err := store.New(filepath.Join(dir, "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	authn := auth.New(s, auth.NewSessionManager(time.Hour))

	mgr, err := gallery.NewManager(s, filepath.Join(dir, "uploads"))
	require.NoError(t, err)

	content, err := LoadContent()
	require.NoError(t, err)

	mux := http.NewServeMux()
	NewServer(s, authn, mgr, content).RegisterRoutes(mux)

	return &testSite{mux: mux, store: s, auth: authn}
}

// adminRequest builds a request carrying a valid session and matching CSRF
// cookie/field pair.
func (ts *testSite) adminRequest(t *testing.T, method, target string, form url.Values) *http.Request {
	t.Helper()

	token, err := ts.auth.IssueSession("principal")
	require.NoError(t, err)

	var body io.Reader
	if form != nil {
		form.Set("csrf_token", "csrf-test-token")
		body = strings.NewReader(form.Encode())
	}

	req := httptest.NewRequest(method, target, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: token})
	req.AddCookie(&http.Cookie{Name: CSRFCookieName, Value: "csrf-test-token"})
	return req
}

func TestKeepAlivePing(t *testing.T) {
	ts := setupSite(t)

	rec := httptest.NewRecorder()
	ts.mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/keepalive-ping", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "pong", rec.Body.String())
}

func TestHomeRecordsVisit(t *testing.T) {
	ts := setupSite(t)

	req := httptest.NewRequest(http.MethodGet, "/?source=flyer", nil)
	rec := httptest.NewRecorder()
	ts.mux.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	count, err := ts.store.CountVisits(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	visits, err := ts.store.RecentVisits(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, visits, 1)
	assert.Equal(t, "flyer", visits[0].Source)
	assert.Equal(t, "home", visits[0].Page)
}

func TestContactPost(t *testing.T) {
	ts := setupSite(t)

	form := url.Values{"sender": {"mary@example.com"}, "text": {"Do you have space for a 3 year old?"}}
	req := httptest.NewRequest(http.MethodPost, "/contact", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	ts.mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusSeeOther, rec.Code)

	msgs, err := ts.store.ListMessages(context.Background())
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "mary@example.com", msgs[0].Sender)
	assert.Equal(t, "Do you have space for a 3 year old?", msgs[0].Text)
	assert.False(t, msgs[0].Seen)
}

func TestContactPost_EmptyMessageRejected(t *testing.T) {
	ts := setupSite(t)

	form := url.Values{"sender": {"mary@example.com"}, "text": {""}}
	req := httptest.NewRequest(http.MethodPost, "/contact", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	ts.mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Contains(t, rec.Header().Get("Location"), "error=1")

	msgs, err := ts.store.ListMessages(context.Background())
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestContactPost_WithAttachment(t *testing.T) {
	ts := setupSite(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("sender", "mary@example.com"))
	require.NoError(t, mw.WriteField("text", "our kitten says hi"))
	part, err := mw.CreateFormFile("attachment", "kitten.jpg")
	require.NoError(t, err)
	_, err = part.Write([]byte("kitten-bytes"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/contact", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	ts.mux.ServeHTTP(rec, req)
	require.Equal(t, http.StatusSeeOther, rec.Code)

	msgs, err := ts.store.ListMessages(context.Background())
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	require.NotEmpty(t, msgs[0].Filename)

	// The attachment is served like any other upload.
	rec = httptest.NewRecorder()
	ts.mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/uploads/"+msgs[0].Filename, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "kitten-bytes", rec.Body.String())
}

func TestAdminRoutesFailClosed(t *testing.T) {
	ts := setupSite(t)

	routes := []struct {
		method string
		target string
	}{
		{http.MethodPost, "/admin/logout"},
		{http.MethodPost, "/admin/messages/reply"},
		{http.MethodPost, "/admin/messages/delete"},
		{http.MethodGet, "/admin/messages/thread/mary%40example.com"},
		{http.MethodGet, "/admin/messages/export"},
		{http.MethodPost, "/admin/gallery/upload"},
		{http.MethodPost, "/admin/gallery/replace_ajax"},
		{http.MethodPost, "/admin/gallery/delete"},
		{http.MethodPost, "/admin/gallery/delete_ajax"},
	}

	for _, route := range routes {
		rec := httptest.NewRecorder()
		ts.mux.ServeHTTP(rec, httptest.NewRequest(route.method, route.target, nil))

		assert.Equal(t, http.StatusSeeOther, rec.Code, "%s %s", route.method, route.target)
		assert.Equal(t, "/admin", rec.Header().Get("Location"), "%s %s", route.method, route.target)
	}
}

func TestAdminShowsRegistrationWhenEmpty(t *testing.T) {
	ts := setupSite(t)

	rec := httptest.NewRecorder()
	ts.mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "/admin/register")
}

func TestRegisterThenDashboard(t *testing.T) {
	ts := setupSite(t)

	form := url.Values{
		"username":   {"principal"},
		"password":   {"pw123456"},
		"confirm":    {"pw123456"},
		"csrf_token": {"csrf-test-token"},
	}
	req := httptest.NewRequest(http.MethodPost, "/admin/register", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(&http.Cookie{Name: CSRFCookieName, Value: "csrf-test-token"})
	rec := httptest.NewRecorder()
	ts.mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/admin", rec.Header().Get("Location"))

	var sessionCookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == SessionCookieName {
			sessionCookie = c
		}
	}
	require.NotNil(t, sessionCookie, "registration must start a session")

	// The session cookie now opens the dashboard.
	req = httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.AddCookie(sessionCookie)
	rec = httptest.NewRecorder()
	ts.mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Signed in as")
	assert.Contains(t, rec.Body.String(), "principal")
}

func TestLogin_BadCredentialsNonSpecific(t *testing.T) {
	ts := setupSite(t)
	ctx := context.Background()

	require.NoError(t, ts.auth.Seed(ctx, "admin-1", "principal", "pw123456"))

	form := url.Values{
		"username":   {"principal"},
		"password":   {"wrong"},
		"csrf_token": {"csrf-test-token"},
	}
	req := httptest.NewRequest(http.MethodPost, "/admin/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(&http.Cookie{Name: CSRFCookieName, Value: "csrf-test-token"})
	rec := httptest.NewRecorder()
	ts.mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid username or password")
	assert.NotContains(t, rec.Body.String(), "Signed in as")
}

func TestMessageReplyMarksThreadSeen(t *testing.T) {
	ts := setupSite(t)
	ctx := context.Background()

	require.NoError(t, ts.store.CreateMessage(ctx, &store.Message{
		ID: "msg-1", Sender: "mary@example.com", Text: "hello", Timestamp: time.Now(),
	}))

	form := url.Values{"receiver": {"mary@example.com"}, "text": {"Yes, come visit!"}}
	rec := httptest.NewRecorder()
	ts.mux.ServeHTTP(rec, ts.adminRequest(t, http.MethodPost, "/admin/messages/reply", form))
	require.Equal(t, http.StatusSeeOther, rec.Code)

	msgs, err := ts.store.ListMessages(ctx)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.True(t, msgs[0].Seen, "original message marked seen")
	assert.Equal(t, "principal", msgs[1].Sender)
	assert.Equal(t, "mary@example.com", msgs[1].Receiver)
	assert.True(t, msgs[1].Seen)
}

func TestMessageThreadMarksSeenOnOpen(t *testing.T) {
	ts := setupSite(t)
	ctx := context.Background()

	require.NoError(t, ts.store.CreateMessage(ctx, &store.Message{
		ID: "msg-1", Sender: "mary@example.com", Text: "do you take toddlers?", Timestamp: time.Now(),
	}))
	require.NoError(t, ts.store.CreateMessage(ctx, &store.Message{
		ID: "msg-2", Sender: "joe@example.com", Text: "unrelated", Timestamp: time.Now(),
	}))

	rec := httptest.NewRecorder()
	ts.mux.ServeHTTP(rec, ts.adminRequest(t, http.MethodGet, "/admin/messages/thread/mary%40example.com", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, "mary@example.com")
	assert.Contains(t, body, "do you take toddlers?")
	assert.NotContains(t, body, "unrelated")
	assert.Contains(t, body, "/admin/messages/reply", "thread page carries the reply form")

	// Opening the thread marks that sender's messages seen; joe's stays unseen.
	msgs, err := ts.store.ListMessages(ctx)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.True(t, msgs[0].Seen)
	assert.False(t, msgs[1].Seen)
}

func TestDashboardShowsVisitorBreakdowns(t *testing.T) {
	ts := setupSite(t)
	ctx := context.Background()

	require.NoError(t, ts.store.CreateMessage(ctx, &store.Message{
		ID: "msg-1", Sender: "mary@example.com", Text: "hi",
		Location: "Ruiru", Platform: "android", Timestamp: time.Now(),
	}))
	require.NoError(t, ts.store.CreateMessage(ctx, &store.Message{
		ID: "msg-2", Sender: "joe@example.com", Text: "hello",
		Location: "Nairobi", Platform: "android", Timestamp: time.Now(),
	}))

	rec := httptest.NewRecorder()
	ts.mux.ServeHTTP(rec, ts.adminRequest(t, http.MethodGet, "/admin", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, "Visitors by location")
	assert.Contains(t, body, "Ruiru")
	assert.Contains(t, body, "Nairobi")
	assert.Contains(t, body, "Visitors by platform")
	assert.Contains(t, body, "android")
}

func TestCSVExportRoundTrip(t *testing.T) {
	ts := setupSite(t)
	ctx := context.Background()

	awkward := []*store.Message{
		{ID: "m1", Sender: "a@example.com", Text: "plain", Timestamp: time.Now()},
		{ID: "m2", Sender: "b@example.com", Text: "commas, everywhere, here", Timestamp: time.Now()},
		{ID: "m3", Sender: "c@example.com", Text: "a \"quoted\" word", Timestamp: time.Now()},
		{ID: "m4", Sender: "d@example.com", Text: "line one\nline two", Timestamp: time.Now()},
	}
	for _, msg := range awkward {
		require.NoError(t, ts.store.CreateMessage(ctx, msg))
	}

	rec := httptest.NewRecorder()
	ts.mux.ServeHTTP(rec, ts.adminRequest(t, http.MethodGet, "/admin/messages/export", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/csv")

	records, err := csv.NewReader(rec.Body).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, len(awkward)+1)
	assert.Equal(t, csvHeader, records[0])

	// Rows come back in insertion order with fields intact.
	for i, msg := range awkward {
		row := records[i+1]
		assert.Equal(t, msg.ID, row[0])
		assert.Equal(t, msg.Sender, row[1])
		assert.Equal(t, msg.Text, row[3])
	}
}

func galleryUploadRequest(t *testing.T, ts *testSite, target, filename, caption string) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("image", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte("fake-image-bytes"))
	require.NoError(t, err)
	require.NoError(t, mw.WriteField("caption", caption))
	require.NoError(t, mw.WriteField("csrf_token", "csrf-test-token"))
	require.NoError(t, mw.Close())

	token, err := ts.auth.IssueSession("principal")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, target, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: token})
	req.AddCookie(&http.Cookie{Name: CSRFCookieName, Value: "csrf-test-token"})
	return req
}

func TestGalleryUploadAndServe(t *testing.T) {
	ts := setupSite(t)
	ctx := context.Background()

	rec := httptest.NewRecorder()
	ts.mux.ServeHTTP(rec, galleryUploadRequest(t, ts, "/admin/gallery/upload", "photo.png", "sports day"))
	require.Equal(t, http.StatusSeeOther, rec.Code)

	items, err := ts.store.ListGalleryItems(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "sports day", items[0].Caption)

	// The stored artifact is publicly served.
	rec = httptest.NewRecorder()
	ts.mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/uploads/"+items[0].Filename, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "fake-image-bytes", rec.Body.String())
}

func TestGalleryUpload_UnsupportedType(t *testing.T) {
	ts := setupSite(t)

	rec := httptest.NewRecorder()
	ts.mux.ServeHTTP(rec, galleryUploadRequest(t, ts, "/admin/gallery/upload", "malware.exe", ""))

	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Contains(t, rec.Header().Get("Location"), "error=1")

	items, err := ts.store.ListGalleryItems(context.Background())
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestGalleryDeleteAjax(t *testing.T) {
	ts := setupSite(t)
	ctx := context.Background()

	rec := httptest.NewRecorder()
	ts.mux.ServeHTTP(rec, galleryUploadRequest(t, ts, "/admin/gallery/upload", "photo.png", ""))
	require.Equal(t, http.StatusSeeOther, rec.Code)

	items, err := ts.store.ListGalleryItems(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)

	form := url.Values{"id": {items[0].ID}}
	rec = httptest.NewRecorder()
	ts.mux.ServeHTTP(rec, ts.adminRequest(t, http.MethodPost, "/admin/gallery/delete_ajax", form))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ajaxResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.True(t, resp.Success)
	assert.Empty(t, resp.Warning)

	items, err = ts.store.ListGalleryItems(ctx)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestGalleryDeleteAjax_NotFound(t *testing.T) {
	ts := setupSite(t)

	form := url.Values{"id": {"no-such-id"}}
	rec := httptest.NewRecorder()
	ts.mux.ServeHTTP(rec, ts.adminRequest(t, http.MethodPost, "/admin/gallery/delete_ajax", form))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUploadsContainment(t *testing.T) {
	ts := setupSite(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/uploads/%2e%2e%2fsite.db", nil)
	ts.mux.ServeHTTP(rec, req)
	assert.NotEqual(t, http.StatusOK, rec.Code)
}

func TestMutatingRoutesRejectBadCSRF(t *testing.T) {
	ts := setupSite(t)

	token, err := ts.auth.IssueSession("principal")
	require.NoError(t, err)

	form := url.Values{"id": {"whatever"}, "csrf_token": {"stale-token"}}
	req := httptest.NewRequest(http.MethodPost, "/admin/messages/delete", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: token})
	req.AddCookie(&http.Cookie{Name: CSRFCookieName, Value: "csrf-test-token"})
	rec := httptest.NewRecorder()
	ts.mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Contains(t, rec.Header().Get("Location"), "error=1")
}
