package web

import (
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/robertkozin/wizardconvert/media"
)

var page = `<!doctype html>
<html lang="en">
<head>
<title>WizardConvert</title>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<link rel="stylesheet" href="https://cdn.jsdelivr.net/npm/water.css@2/out/water.css">
</head>
<body>
	<h1>WizardConvert</h1>
	{{if .NotFound}}<p>That page does not exist, but you can convert a video below.</p>{{end}}

	<form id="conversion-form" enctype="multipart/form-data">
		<label for="youtube-url">YouTube URL</label>
		<input type="url" id="youtube-url" name="youtube_url" placeholder="https://www.youtube.com/watch?v=..." required style="width: 100%">

		<label for="format">Format</label>
		<select id="format" name="format">
			{{range .Formats}}<option value="{{.}}">{{.}}</option>{{end}}
		</select>

		<label for="cookies-file">Cookies file (optional, Netscape format .txt)</label>
		<input type="file" id="cookies-file" name="cookies_file" accept=".txt">

		<button type="submit" id="convert-btn">Convert</button>
	</form>

	<p id="conversion-status"></p>
	<p id="download-section" hidden>
		<strong id="video-title"></strong>
		<a id="download-btn" href="#">Download</a>
	</p>

	<script>
	const form = document.getElementById('conversion-form');
	const status = document.getElementById('conversion-status');
	const button = document.getElementById('convert-btn');
	const download = document.getElementById('download-section');

	form.addEventListener('submit', async (event) => {
		event.preventDefault();
		button.disabled = true;
		download.hidden = true;
		status.textContent = 'Converting, this can take a few minutes...';
		try {
			const resp = await fetch('/convert', {method: 'POST', body: new FormData(form)});
			const data = await resp.json();
			if (data.status !== 'success') {
				status.textContent = data.message;
				return;
			}
			status.textContent = data.message;
			document.getElementById('video-title').textContent = data.title;
			document.getElementById('download-btn').href = '/download/' + data.conversion_id;
			download.hidden = false;
		} catch (err) {
			status.textContent = 'Something went wrong, please try again.';
		} finally {
			button.disabled = false;
		}
	});
	</script>
</body>
</html>`

type pageData struct {
	Formats  []media.Format
	NotFound bool
}

var indexTemplate = template.Must(template.New("index").Parse(page))

func (s *Server) renderIndex(c *gin.Context, code int) {
	c.HTML(code, "index", pageData{
		Formats:  media.Formats,
		NotFound: code == http.StatusNotFound,
	})
}
