package httpserver

import (
	"errors"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/magister_portal/internal/logging"
	"github.com/Skotchmaster/magister_portal/internal/media"
	authmw "github.com/Skotchmaster/magister_portal/internal/middleware/auth"
	"github.com/Skotchmaster/magister_portal/internal/service"
	"github.com/Skotchmaster/magister_portal/internal/util"
)

const mediaField = "media"

type PostHTTP struct {
	Svc *service.PostService
}

func (h *PostHTTP) ListPosts(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "posts.list")

	posts, err := h.Svc.ListPosts(ctx)
	if err != nil {
		return toHTTP(l, "list_posts_error", err, nil)
	}
	return c.JSON(http.StatusOK, posts)
}

func (h *PostHTTP) SearchPosts(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "posts.search")

	page := util.ParseIntDefault(c.QueryParam("page"), 1)
	size := util.ParseIntDefault(c.QueryParam("size"), util.DefaultPageSize)

	res, err := h.Svc.SearchPosts(ctx, c.QueryParam("q"), page, size)
	if err != nil {
		return toHTTP(l, "search_posts_error", err, nil)
	}
	return c.JSON(http.StatusOK, res)
}

type createPostRequest struct {
	Title   string `json:"title" form:"title"`
	Text    string `json:"text" form:"text"`
	Content string `json:"content" form:"content"`
}

// CreatePost accepts JSON or a multipart form with an optional "media" file.
func (h *PostHTTP) CreatePost(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "posts.create")

	var req createPostRequest
	if err := c.Bind(&req); err != nil {
		return badBody(l, "create_post_error", err)
	}
	in := service.CreatePostInput{Title: req.Title, Text: req.Text}
	if strings.TrimSpace(in.Text) == "" {
		in.Text = req.Content
	}

	if strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm) {
		fh, err := c.FormFile(mediaField)
		switch {
		case errors.Is(err, http.ErrMissingFile):
		case err != nil:
			return badBody(l, "create_post_error", err)
		default:
			f, err := fh.Open()
			if err != nil {
				return badBody(l, "create_post_error", err)
			}
			defer f.Close()

			contentType := fh.Header.Get(echo.HeaderContentType)
			if contentType == "" || contentType == echo.MIMEOctetStream {
				contentType = mime.TypeByExtension(strings.ToLower(filepath.Ext(fh.Filename)))
			}
			in.Upload = &media.Upload{
				Filename:    fh.Filename,
				ContentType: contentType,
				Size:        fh.Size,
				Body:        f,
			}
		}
	}

	post, err := h.Svc.CreatePost(ctx, authmw.CurrentUser(c), in)
	if err != nil {
		return toHTTP(l, "create_post_error", err, messages{
			service.ErrUpstream: "Could not store media",
		})
	}
	return c.JSON(http.StatusCreated, post)
}

func (h *PostHTTP) React(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "posts.react")

	var req struct {
		Type string `json:"type"`
	}
	if err := c.Bind(&req); err != nil {
		return badBody(l, "react_error", err)
	}

	post, err := h.Svc.React(ctx, authmw.CurrentUser(c), c.Param("id"), req.Type)
	if err != nil {
		return toHTTP(l, "react_error", err, messages{service.ErrNotFound: "Post not found"})
	}
	return c.JSON(http.StatusOK, post)
}

func (h *PostHTTP) Comment(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "posts.comment")

	var req struct {
		Text string `json:"text"`
	}
	if err := c.Bind(&req); err != nil {
		return badBody(l, "comment_error", err)
	}

	post, err := h.Svc.Comment(ctx, authmw.CurrentUser(c), c.Param("id"), req.Text)
	if err != nil {
		return toHTTP(l, "comment_error", err, messages{service.ErrNotFound: "Post not found"})
	}
	return c.JSON(http.StatusOK, post)
}

func (h *PostHTTP) DeletePost(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "posts.delete")

	if err := h.Svc.DeletePost(ctx, authmw.CurrentUser(c), c.Param("id")); err != nil {
		return toHTTP(l, "delete_post_error", err, messages{service.ErrNotFound: "Post not found"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Post deleted"})
}
