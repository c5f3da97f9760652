package main

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func newTestApp(t *testing.T) (*App, *mux.Router) {
	t.Helper()
	db := NewMemoryDB()
	issuer := NewTokenIssuer("test-access-secret", "test-refresh-secret")
	app := &App{
		DB:            db,
		tokens:        db,
		issuer:        issuer,
		sessions:      NewSessionManager(db, db, issuer),
		uploadDir:     t.TempDir(),
		allowedOrigin: "*",
		rateLimiter:   NewRateLimiter(100000),
	}
	return app, newRouter(app)
}

func doJSON(t *testing.T, router *mux.Router, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

// loginAs registers the user if needed and returns its token pair.
func loginAs(t *testing.T, router *mux.Router, username string) (access, refresh string) {
	t.Helper()
	doJSON(t, router, "POST", "/signup", "", map[string]string{
		"username": username,
		"password": username + "-password",
	})
	rec := doJSON(t, router, "POST", "/login", "", map[string]string{
		"username": username,
		"password": username + "-password",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	access, _ = body["accessToken"].(string)
	refresh, _ = body["refreshToken"].(string)
	require.NotEmpty(t, access)
	require.NotEmpty(t, refresh)
	return access, refresh
}

func createPostAs(t *testing.T, router *mux.Router, token, title string, categories ...string) string {
	t.Helper()
	rec := doJSON(t, router, "POST", "/create", token, map[string]interface{}{
		"title":       title,
		"description": "Body of " + title,
		"categories":  categories,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	data := decodeBody(t, rec)["data"].(map[string]interface{})
	return data["id"].(string)
}

func TestSignupEndpoint(t *testing.T) {
	_, router := newTestApp(t)

	rec := doJSON(t, router, "POST", "/signup", "", map[string]string{
		"username": "alice", "name": "Alice", "email": "alice@example.com", "password": "pw",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	require.Equal(t, true, body["success"])
	// signup never hands out tokens
	require.NotContains(t, body, "accessToken")
	require.NotContains(t, rec.Body.String(), "password")

	rec = doJSON(t, router, "POST", "/signup", "", map[string]string{
		"username": "alice", "password": "otherpw",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "Username already exists")

	rec = doJSON(t, router, "POST", "/signup", "", map[string]string{
		"username": "alice2", "email": "alice@example.com", "password": "pw",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "Email already exists")

	rec = doJSON(t, router, "POST", "/signup", "", map[string]string{"username": "nopass"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLoginEndpoint(t *testing.T) {
	_, router := newTestApp(t)
	loginAs(t, router, "alice")

	rec := doJSON(t, router, "POST", "/login", "", map[string]string{
		"username": "alice", "password": "wrong",
	})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	wrongPass := rec.Body.String()

	rec = doJSON(t, router, "POST", "/login", "", map[string]string{
		"username": "ghost", "password": "alice-password",
	})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, wrongPass, rec.Body.String())
}

func TestAuthGate(t *testing.T) {
	_, router := newTestApp(t)

	rec := doJSON(t, router, "GET", "/posts", "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Contains(t, rec.Body.String(), "token is missing")

	rec = doJSON(t, router, "GET", "/posts", "not-a-jwt", nil)
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Contains(t, rec.Body.String(), "invalid token")

	access, _ := loginAs(t, router, "alice")
	rec = doJSON(t, router, "GET", "/posts", access, nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthGateAuthenticatesLoginIdentity(t *testing.T) {
	_, router := newTestApp(t)
	access, _ := loginAs(t, router, "carol")

	id := createPostAs(t, router, access, "Carol's post")
	rec := doJSON(t, router, "GET", "/post/"+id, access, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	data := decodeBody(t, rec)["data"].(map[string]interface{})
	require.Equal(t, "carol", data["username"])
}

func TestPostOwnership(t *testing.T) {
	_, router := newTestApp(t)
	alice, _ := loginAs(t, router, "alice")
	bob, _ := loginAs(t, router, "bob")

	id := createPostAs(t, router, alice, "Alice writes")

	update := map[string]string{"description": "edited"}

	rec := doJSON(t, router, "PUT", "/update/"+id, bob, update)
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Contains(t, rec.Body.String(), "not authorized to update")

	rec = doJSON(t, router, "DELETE", "/delete/"+id, bob, nil)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = doJSON(t, router, "PUT", "/update/"+id, alice, update)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, "DELETE", "/delete/"+id, alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, "GET", "/post/"+id, alice, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPostInvalidID(t *testing.T) {
	_, router := newTestApp(t)
	access, _ := loginAs(t, router, "alice")

	rec := doJSON(t, router, "GET", "/post/not-a-uuid", access, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "Invalid post ID format")
}

func TestDuplicateTitle(t *testing.T) {
	_, router := newTestApp(t)
	access, _ := loginAs(t, router, "alice")

	createPostAs(t, router, access, "Unique title")
	rec := doJSON(t, router, "POST", "/create", access, map[string]string{
		"title": "Unique title", "description": "other body",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "Title already exists")
}

func TestPostFilters(t *testing.T) {
	_, router := newTestApp(t)
	alice, _ := loginAs(t, router, "alice")
	bob, _ := loginAs(t, router, "bob")

	createPostAs(t, router, alice, "Go concurrency patterns", "programming")
	createPostAs(t, router, alice, "Sourdough basics", "baking")
	createPostAs(t, router, bob, "Advanced GO generics", "programming")

	cases := []struct {
		query string
		count int
	}{
		{"/posts", 3},
		{"/posts?username=alice", 2},
		{"/posts?username=nobody", 0},
		{"/posts?category=programming", 2},
		{"/posts?category=baking", 1},
		{"/posts?search=go", 2}, // case-insensitive over title and description
		{"/posts?search=sourdough", 1},
		{"/posts?search=zzz", 0},
	}
	for _, tc := range cases {
		rec := doJSON(t, router, "GET", tc.query, alice, nil)
		require.Equal(t, http.StatusOK, rec.Code, tc.query)
		body := decodeBody(t, rec)
		require.Equal(t, float64(tc.count), body["count"], tc.query)
	}
}

func TestRefreshEndpoint(t *testing.T) {
	_, router := newTestApp(t)
	_, refresh := loginAs(t, router, "alice")

	rec := doJSON(t, router, "POST", "/token", "", map[string]string{"token": "Bearer " + refresh})
	require.Equal(t, http.StatusOK, rec.Code)
	access, _ := decodeBody(t, rec)["accessToken"].(string)
	require.NotEmpty(t, access)

	// refresh is not single-use
	rec = doJSON(t, router, "POST", "/token", "", map[string]string{"token": "Bearer " + refresh})
	require.Equal(t, http.StatusOK, rec.Code)

	// body must carry the Bearer shape
	rec = doJSON(t, router, "POST", "/token", "", map[string]string{"token": refresh})
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	// unknown token value
	rec = doJSON(t, router, "POST", "/token", "", map[string]string{"token": "Bearer nope"})
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLogoutThenRefreshEndpoint(t *testing.T) {
	_, router := newTestApp(t)
	_, refresh := loginAs(t, router, "alice")

	rec := doJSON(t, router, "POST", "/logout", "", map[string]string{"token": refresh})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, "POST", "/token", "", map[string]string{"token": "Bearer " + refresh})
	require.Equal(t, http.StatusNotFound, rec.Code)

	// logging out again is not an error
	rec = doJSON(t, router, "POST", "/logout", "", map[string]string{"token": refresh})
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestComments(t *testing.T) {
	_, router := newTestApp(t)
	alice, _ := loginAs(t, router, "alice")
	bob, _ := loginAs(t, router, "bob")

	postID := createPostAs(t, router, alice, "Commented post")

	rec := doJSON(t, router, "POST", "/comment/new", bob, map[string]string{
		"postId": postID, "comments": "nice write-up",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	comment := decodeBody(t, rec)["data"].(map[string]interface{})
	commentID := comment["id"].(string)
	require.Equal(t, "bob", comment["username"])

	rec = doJSON(t, router, "POST", "/comment/new", bob, map[string]string{
		"postId": "00000000-0000-0000-0000-000000000000", "comments": "orphan",
	})
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, router, "GET", "/comments/"+postID, alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, float64(1), decodeBody(t, rec)["count"])

	// only the comment author may delete it
	rec = doJSON(t, router, "DELETE", "/comment/delete/"+commentID, alice, nil)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = doJSON(t, router, "DELETE", "/comment/delete/"+commentID, bob, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, "DELETE", "/comment/delete/"+commentID, bob, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestExportExcel(t *testing.T) {
	_, router := newTestApp(t)
	access, _ := loginAs(t, router, "alice")
	createPostAs(t, router, access, "Exported post", "news")

	rec := doJSON(t, router, "GET", "/posts/export/excel", access, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, xlsxContentType, rec.Header().Get("Content-Type"))
	require.Contains(t, rec.Header().Get("Content-Disposition"), "blog_posts.xlsx")

	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()

	title, err := f.GetCellValue("Blog Posts", "A1")
	require.NoError(t, err)
	require.Equal(t, "Title", title)

	first, err := f.GetCellValue("Blog Posts", "A2")
	require.NoError(t, err)
	require.Equal(t, "Exported post", first)
}

func TestExportWord(t *testing.T) {
	_, router := newTestApp(t)
	access, _ := loginAs(t, router, "alice")
	id := createPostAs(t, router, access, "Word export")

	rec := doJSON(t, router, "GET", "/posts/"+id+"/export/word", access, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, docxContentType, rec.Header().Get("Content-Type"))
	require.Contains(t, rec.Header().Get("Content-Disposition"), "Word export.docx")
	// docx files are zip archives
	require.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("PK")))
}

func uploadRequest(t *testing.T, contentType string) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="pic.png"`)
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write([]byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'})
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest("POST", "/file/upload", body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestFileUploadAndServe(t *testing.T) {
	_, router := newTestApp(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, uploadRequest(t, "image/png"))
	require.Equal(t, http.StatusOK, rec.Code)
	url, _ := decodeBody(t, rec)["imageUrl"].(string)
	require.NotEmpty(t, url)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", url, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte{0x89, 'P', 'N', 'G'}))
}

func TestFileUploadRejectsNonImages(t *testing.T) {
	_, router := newTestApp(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, uploadRequest(t, "application/pdf"))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "png, jpg and jpeg")
}

func TestFileServeRejectsTraversal(t *testing.T) {
	_, router := newTestApp(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/file/..%2F..%2Fetc%2Fpasswd", nil))
	require.NotEqual(t, http.StatusOK, rec.Code)
}

func TestResponseEnvelopes(t *testing.T) {
	_, router := newTestApp(t)

	// error envelope carries exactly a code and a message
	rec := doJSON(t, router, "GET", "/posts", "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	var apiErr map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &apiErr))
	require.Equal(t, map[string]interface{}{
		"error_code":    "TOKEN_MISSING",
		"error_message": "token is missing",
	}, apiErr)

	// message-only envelope omits the data key
	rec = doJSON(t, router, "POST", "/signup", "", map[string]string{"username": "dana", "password": "pw"})
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	require.Equal(t, true, body["success"])
	require.Equal(t, "Signup successful! Please login to continue.", body["msg"])
	require.NotContains(t, body, "data")
}

func TestHealthEndpoints(t *testing.T) {
	_, router := newTestApp(t)

	rec := doJSON(t, router, "GET", "/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, "GET", "/ready", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, "GET", "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "http_requests_total")
}
