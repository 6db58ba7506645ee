package web

import (
	"errors"
	"io/fs"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/robertkozin/wizardconvert/archive"
	"github.com/robertkozin/wizardconvert/convert"
	"github.com/robertkozin/wizardconvert/media"
)

const (
	msgNoURL         = "No YouTube URL provided"
	msgInvalidFormat = "Invalid format. Choose either mp3 or mp4"
	msgInvalidURL    = "Invalid YouTube URL"
	msgNotFound      = "File not found or expired"
	msgFileVanished  = "The file you're trying to download was not found. Please try converting again."
	msgInternal      = "Internal server error"
)

// GET /
func (s *Server) index(c *gin.Context) {
	s.renderIndex(c, http.StatusOK)
}

// POST /convert
func (s *Server) convert(c *gin.Context) {
	ctx := c.Request.Context()

	rawURL := c.PostForm("youtube_url")
	if rawURL == "" {
		c.JSON(http.StatusBadRequest, errorResponse(msgNoURL))
		return
	}
	format, ok := media.ParseFormat(c.PostForm("format"))
	if !ok {
		c.JSON(http.StatusBadRequest, errorResponse(msgInvalidFormat))
		return
	}
	if !media.ValidateURL(rawURL) {
		c.JSON(http.StatusBadRequest, errorResponse(msgInvalidURL))
		return
	}

	id := uuid.NewString()
	dir, err := s.Workdirs.Create(id)
	if err != nil {
		s.Logger.ErrorContext(ctx, "error during conversion", "id", id, "err", err)
		c.JSON(http.StatusInternalServerError, errorResponse(msgInternal))
		return
	}

	var cookies string
	if fh, err := c.FormFile("cookies_file"); err == nil && strings.HasSuffix(fh.Filename, ".txt") {
		path := s.Workdirs.CookiePath(id)
		if err := c.SaveUploadedFile(fh, path); err != nil {
			s.Logger.WarnContext(ctx, "saving cookies file", "id", id, "err", err)
		} else {
			cookies = path
			s.Logger.InfoContext(ctx, "cookies file uploaded and saved", "id", id)
		}
	}

	res, err := s.Converter.Convert(ctx, convert.Request{
		URL:     rawURL,
		Format:  format,
		Dir:     dir,
		Cookies: cookies,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorResponse(convert.Classify(err, cookies != "").Message))
		return
	}

	if err := s.Sessions.Remember(c, id, res.FilePath); err != nil {
		s.Logger.WarnContext(ctx, "saving session", "id", id, "err", err)
	}

	if s.Archive != nil {
		entry := archive.Entry{ID: id, SourceURL: rawURL, Title: res.Title, Format: format}
		if err := s.Archive.Put(ctx, entry, res.FilePath); err != nil {
			s.Logger.WarnContext(ctx, "archiving conversion", "id", id, "err", err)
		}
	}

	c.JSON(http.StatusOK, response{
		Status:       "success",
		Message:      "Conversion successful!",
		ConversionID: id,
		Title:        res.Title,
	})
}

// GET /download/:id
func (s *Server) download(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")

	if parsed, err := uuid.Parse(id); err != nil || parsed.String() != id {
		c.JSON(http.StatusNotFound, errorResponse(msgNotFound))
		return
	}

	if path := s.resolve(c, id); path != "" {
		s.serveFile(c, path)
		return
	}

	if s.Archive != nil {
		manifest, r, err := s.Archive.Get(ctx, id)
		if err == nil {
			defer r.Close()
			name := manifest.Name
			if name == "" {
				name = manifest.File
			}
			s.Logger.InfoContext(ctx, "serving archived file", "id", id, "file", manifest.File)
			c.DataFromReader(http.StatusOK, -1, mime.TypeByExtension(filepath.Ext(manifest.File)), r, map[string]string{
				"Content-Disposition": attachment(name),
			})
			return
		}
		if !errors.Is(err, fs.ErrNotExist) {
			s.Logger.WarnContext(ctx, "reading archive", "id", id, "err", err)
		}
	}

	s.Logger.ErrorContext(ctx, "file not found for conversion", "id", id)
	c.JSON(http.StatusNotFound, errorResponse(msgNotFound))
}

// resolve finds the file for id, preferring the session and falling back to
// scanning the working directory.
func (s *Server) resolve(c *gin.Context, id string) string {
	if path, ok := s.Sessions.Lookup(c, id); ok && s.Workdirs.Contains(id, path) {
		if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
			return path
		}
	}

	path, err := s.Workdirs.Find(id, media.Extensions()...)
	if err != nil {
		return ""
	}
	if err := s.Sessions.Remember(c, id, path); err != nil {
		s.Logger.WarnContext(c.Request.Context(), "saving session", "id", id, "err", err)
	}
	return path
}

func (s *Server) serveFile(c *gin.Context, path string) {
	f, err := os.Open(path)
	if err != nil {
		s.Logger.ErrorContext(c.Request.Context(), "error during download", "path", path, "err", err)
		if errors.Is(err, fs.ErrNotExist) {
			c.JSON(http.StatusInternalServerError, errorResponse(msgFileVanished))
		} else {
			c.JSON(http.StatusInternalServerError, errorResponse("Error downloading the file: "+err.Error()+". Please try again."))
		}
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorResponse("Error downloading the file: "+err.Error()+". Please try again."))
		return
	}

	name := filepath.Base(path)
	c.Header("Content-Disposition", attachment(name))
	http.ServeContent(c.Writer, c.Request, name, info.ModTime(), f)
}

func attachment(name string) string {
	return mime.FormatMediaType("attachment", map[string]string{"filename": name})
}
