package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"blog/api/handlers"
	"blog/api/routes"
	"blog/cache"
	"blog/db/dbtest"
	"blog/media"
	"blog/models"
	"blog/services"
	"blog/store"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testApp struct {
	router *gin.Engine
	store  *store.Store
}

func setupApp(t *testing.T) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)

	st := store.New(dbtest.Open(t))
	storage, err := media.NewLocalStorage(t.TempDir(), "/media/")
	require.NoError(t, err)
	auth := services.NewAuthService(st)

	h := &handlers.Handler{
		Auth:      auth,
		Feeds:     services.NewFeedService(st, cache.NewPageCache("index", cache.NoopCache{}), storage, services.FeedOptions{PageSize: 10, IndexTTL: 20 * time.Second}),
		Posts:     services.NewPostService(st, storage, nil),
		Comments:  services.NewCommentService(st),
		Follows:   services.NewFollowService(st),
		Groups:    services.NewGroupService(st),
		WS:        services.NewWSConnManager(),
		MaxUpload: 1 << 20,
	}
	router := routes.NewRouter(h, auth, routes.Options{MediaRoot: storage.Root(), MediaPrefix: "/media"})
	return &testApp{router: router, store: st}
}

// login создает пользователя и токен напрямую через store
func (a *testApp) login(t *testing.T, username string) (*models.User, string) {
	t.Helper()
	ctx := context.Background()
	user := &models.User{Username: username, Password: "unused"}
	require.NoError(t, a.store.CreateUser(ctx, user))
	token := "token-" + username
	require.NoError(t, a.store.CreateToken(ctx, user.ID, token))
	return user, token
}

func (a *testApp) do(t *testing.T, method, path, token string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)

	var decoded map[string]interface{}
	if w.Body.Len() > 0 {
		_ = json.Unmarshal(w.Body.Bytes(), &decoded)
	}
	return w, decoded
}

func (a *testApp) createPost(t *testing.T, token, text string) int64 {
	t.Helper()
	w, body := a.do(t, http.MethodPost, "/api/v1/new", token, gin.H{"text": text})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	post := body["post"].(map[string]interface{})
	return int64(post["id"].(float64))
}

func TestIndex(t *testing.T) {
	app := setupApp(t)
	_, token := app.login(t, "leo")
	app.createPost(t, token, "first")
	app.createPost(t, token, "second")

	w, body := app.do(t, http.MethodGet, "/api/v1/posts?page=abc", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, body["number"])
	posts := body["posts"].([]interface{})
	require.Len(t, posts, 2)
	assert.Equal(t, "second", posts[0].(map[string]interface{})["text"])
	author := posts[0].(map[string]interface{})["author"].(map[string]interface{})
	assert.Equal(t, "leo", author["username"])
	assert.NotContains(t, author, "password")
}

func TestNewPostRequiresAuth(t *testing.T) {
	app := setupApp(t)
	w, body := app.do(t, http.MethodPost, "/api/v1/new", "", gin.H{"text": "hi"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "/api/v1/auth/login?next=/api/v1/new", body["redirect"])

	w, _ = app.do(t, http.MethodPost, "/api/v1/new", "bogus-token", gin.H{"text": "hi"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestNewPostValidation(t *testing.T) {
	app := setupApp(t)
	_, token := app.login(t, "leo")

	w, body := app.do(t, http.MethodPost, "/api/v1/new", token, gin.H{"text": "  ", "group": 42})
	require.Equal(t, http.StatusBadRequest, w.Code)
	errs := body["errors"].(map[string]interface{})
	assert.Contains(t, errs, "text")
	assert.Contains(t, errs, "group")
	form := body["form"].(map[string]interface{})
	assert.Equal(t, "  ", form["text"])
}

func TestNewPostMultipartWithImage(t *testing.T) {
	app := setupApp(t)
	_, token := app.login(t, "leo")

	var img bytes.Buffer
	require.NoError(t, png.Encode(&img, image.NewRGBA(image.Rect(0, 0, 4, 4))))

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("text", "with picture"))
	part, err := mw.CreateFormFile("image", "pic.png")
	require.NoError(t, err)
	_, err = part.Write(img.Bytes())
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/new", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	app.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var body struct {
		Post models.Post `json:"post"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.NotEmpty(t, body.Post.Image)
	assert.Nil(t, body.Post.GroupID)

	// файл раздается из /media/
	w = httptest.NewRecorder()
	app.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/media/"+body.Post.Image, nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, img.Bytes(), w.Body.Bytes())
}

func TestNotFound(t *testing.T) {
	app := setupApp(t)
	leo, token := app.login(t, "leo")
	app.login(t, "ann")
	postID := app.createPost(t, token, "hello")

	w, body := app.do(t, http.MethodGet, "/api/v1/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "/api/v1/nope", body["path"])

	w, _ = app.do(t, http.MethodGet, "/api/v1/users/ghost", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = app.do(t, http.MethodGet, "/api/v1/group/missing", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = app.do(t, http.MethodGet, "/api/v1/users/ann/posts/"+itoa(postID), "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = app.do(t, http.MethodGet, "/api/v1/users/leo/posts/abc", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, body = app.do(t, http.MethodGet, "/api/v1/users/"+leo.Username+"/posts/"+itoa(postID), "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "hello", body["post"].(map[string]interface{})["text"])
	assert.EqualValues(t, 1, body["post_count"])
}

func TestEditPostOutcomes(t *testing.T) {
	app := setupApp(t)
	_, leoToken := app.login(t, "leo")
	_, annToken := app.login(t, "ann")
	postID := app.createPost(t, leoToken, "original")
	path := "/api/v1/users/leo/posts/" + itoa(postID) + "/edit"

	w, body := app.do(t, http.MethodPost, path, annToken, gin.H{"text": "hijack"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "skipped", body["status"])
	assert.Equal(t, "not_owner", body["reason"])
	assert.Equal(t, "/api/v1/users/leo/posts/"+itoa(postID), body["redirect"])

	w, body = app.do(t, http.MethodPost, path, leoToken, gin.H{"text": "edited"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "applied", body["status"])
	assert.Equal(t, "edited", body["post"].(map[string]interface{})["text"])

	w, _ = app.do(t, http.MethodPost, path, leoToken, gin.H{"text": ""})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEditPostChecksOwnerBeforeUpload(t *testing.T) {
	app := setupApp(t)
	_, leoToken := app.login(t, "leo")
	_, annToken := app.login(t, "ann")
	postID := app.createPost(t, leoToken, "original")
	path := "/api/v1/users/leo/posts/" + itoa(postID) + "/edit"

	oversized := func(token string) *httptest.ResponseRecorder {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		require.NoError(t, mw.WriteField("text", "hijack"))
		part, err := mw.CreateFormFile("image", "big.png")
		require.NoError(t, err)
		_, err = part.Write(bytes.Repeat([]byte{0}, 2<<20))
		require.NoError(t, err)
		require.NoError(t, mw.Close())

		req := httptest.NewRequest(http.MethodPost, path, &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		app.router.ServeHTTP(w, req)
		return w
	}

	w := oversized(annToken)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "skipped", body["status"])
	assert.Equal(t, "not_owner", body["reason"])
	assert.Equal(t, "/api/v1/users/leo/posts/"+itoa(postID), body["redirect"])

	// автору тот же запрос отвечает ошибкой размера
	w = oversized(leoToken)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Contains(t, body["errors"], "image")

	_, view := app.do(t, http.MethodGet, "/api/v1/users/leo/posts/"+itoa(postID), "", nil)
	assert.Equal(t, "original", view["post"].(map[string]interface{})["text"])
}

func TestDeletePost(t *testing.T) {
	app := setupApp(t)
	_, leoToken := app.login(t, "leo")
	_, annToken := app.login(t, "ann")
	postID := app.createPost(t, leoToken, "bye")
	path := "/api/v1/users/leo/posts/" + itoa(postID)

	_, body := app.do(t, http.MethodDelete, path, annToken, nil)
	assert.Equal(t, "skipped", body["status"])

	w, body := app.do(t, http.MethodDelete, path, leoToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "applied", body["status"])
	assert.Equal(t, "/api/v1/users/leo", body["redirect"])

	w, _ = app.do(t, http.MethodGet, path, "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestComments(t *testing.T) {
	app := setupApp(t)
	_, leoToken := app.login(t, "leo")
	_, annToken := app.login(t, "ann")
	postID := app.createPost(t, leoToken, "post")
	path := "/api/v1/users/leo/posts/" + itoa(postID) + "/comment"

	w, _ := app.do(t, http.MethodPost, path, "", gin.H{"text": "hi"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, body := app.do(t, http.MethodPost, path, annToken, gin.H{"text": ""})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, body["errors"], "text")

	w, body = app.do(t, http.MethodPost, path, annToken, gin.H{"text": "nice"})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "/api/v1/users/leo/posts/"+itoa(postID), body["redirect"])

	_, body = app.do(t, http.MethodGet, "/api/v1/users/leo/posts/"+itoa(postID), "", nil)
	comments := body["comments"].([]interface{})
	require.Len(t, comments, 1)
	assert.Equal(t, "nice", comments[0].(map[string]interface{})["text"])
}

func TestFollowFlow(t *testing.T) {
	app := setupApp(t)
	_, leoToken := app.login(t, "leo")
	_, annToken := app.login(t, "ann")
	app.createPost(t, leoToken, "leo writes")

	w, _ := app.do(t, http.MethodGet, "/api/v1/follow", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	_, body := app.do(t, http.MethodPost, "/api/v1/users/leo/follow", leoToken, nil)
	assert.Equal(t, "skipped", body["status"])
	assert.Equal(t, "self_follow", body["reason"])
	assert.Equal(t, "/api/v1/users/leo", body["redirect"])

	w, body = app.do(t, http.MethodPost, "/api/v1/users/leo/follow", annToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "applied", body["status"])
	assert.Equal(t, "/api/v1/follow", body["redirect"])

	_, body = app.do(t, http.MethodPost, "/api/v1/users/leo/follow", annToken, nil)
	assert.Equal(t, "already_following", body["reason"])

	w, body = app.do(t, http.MethodGet, "/api/v1/follow", annToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, body["posts"], 1)

	_, body = app.do(t, http.MethodGet, "/api/v1/users/leo", annToken, nil)
	assert.Equal(t, true, body["is_following"])
	assert.EqualValues(t, 1, body["followers"])

	_, body = app.do(t, http.MethodPost, "/api/v1/users/leo/unfollow", annToken, nil)
	assert.Equal(t, "applied", body["status"])
	assert.Equal(t, "/api/v1/posts", body["redirect"])

	_, body = app.do(t, http.MethodPost, "/api/v1/users/leo/unfollow", annToken, nil)
	assert.Equal(t, "not_following", body["reason"])
	assert.Equal(t, "/api/v1/users/leo", body["redirect"])

	w, _ = app.do(t, http.MethodPost, "/api/v1/users/ghost/follow", annToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGroupsEndpoints(t *testing.T) {
	app := setupApp(t)
	_, token := app.login(t, "leo")

	w, body := app.do(t, http.MethodPost, "/api/v1/groups", token, gin.H{"title": "Cats", "slug": "cats"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	group := body["group"].(map[string]interface{})
	groupID := group["id"].(float64)

	w, _ = app.do(t, http.MethodPost, "/api/v1/new", token, gin.H{"text": "meow", "group": groupID})
	require.Equal(t, http.StatusCreated, w.Code)

	w, body = app.do(t, http.MethodGet, "/api/v1/group/cats", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	page := body["page"].(map[string]interface{})
	assert.Len(t, page["posts"], 1)

	_, body = app.do(t, http.MethodGet, "/api/v1/groups", "", nil)
	assert.Len(t, body["groups"], 1)

	w, _ = app.do(t, http.MethodDelete, "/api/v1/groups/cats", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	_, body = app.do(t, http.MethodGet, "/api/v1/posts", "", nil)
	posts := body["posts"].([]interface{})
	require.Len(t, posts, 1)
	assert.Nil(t, posts[0].(map[string]interface{})["group_id"])
}

func TestRegisterLoginLogout(t *testing.T) {
	app := setupApp(t)

	w, _ := app.do(t, http.MethodPost, "/api/v1/auth/register", "", gin.H{"username": "leo", "password": "supersecret"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w, body := app.do(t, http.MethodPost, "/api/v1/auth/register", "", gin.H{"username": "leo", "password": "supersecret"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, body["errors"], "username")

	w, _ = app.do(t, http.MethodPost, "/api/v1/auth/login", "", gin.H{"username": "leo", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, body = app.do(t, http.MethodPost, "/api/v1/auth/login?next=/api/v1/new", "", gin.H{"username": "leo", "password": "supersecret"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "/api/v1/new", body["redirect"])
	token := body["token"].(string)

	w, _ = app.do(t, http.MethodGet, "/api/v1/follow", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = app.do(t, http.MethodPost, "/api/v1/auth/logout", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = app.do(t, http.MethodGet, "/api/v1/follow", token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMetricsAndRecovery(t *testing.T) {
	app := setupApp(t)
	app.router.GET("/panic", func(c *gin.Context) { panic("boom") })

	w, body := app.do(t, http.MethodGet, "/panic", "", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "internal server error", body["error"])

	w = httptest.NewRecorder()
	app.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "http_requests_total")
}

func itoa(v int64) string {
	return strconv.FormatInt(v, 10)
}
