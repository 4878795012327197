package templates

import (
	"github.com/a-h/templ"

	"github.com/bnema/shortsdash/internal/domain"
)

const (
	htmxSrc    = "https://cdn.jsdelivr.net/npm/htmx.org@2.0.4/dist/htmx.min.js"
	htmxSSESrc = "https://cdn.jsdelivr.net/npm/htmx-ext-sse@2.2.2/sse.js"
)

func layout(title string, user *domain.User, csrfToken string, body templ.Component) templ.Component {
	return component(func(h *html) {
		h.raw(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">`)
		h.raw(`<meta name="viewport" content="width=device-width, initial-scale=1">`)
		h.raw(`<title>`)
		h.text(title)
		h.raw(` · InstaShorts</title>`)
		h.raw(`<link rel="stylesheet" href="/static/app.css">`)
		h.raw(`<script src="` + htmxSrc + `"></script>`)
		h.raw(`<script src="` + htmxSSESrc + `"></script>`)
		h.raw(`</head><body`)
		if csrfToken != "" {
			h.attr("hx-headers", `{"X-CSRF-Token": "`+csrfToken+`"}`)
		}
		h.raw(`>`)

		h.raw(`<nav class="topbar"><a class="brand" href="/">InstaShorts Dashboard</a>`)
		if user != nil {
			h.raw(`<div class="account">`)
			if user.Picture != "" {
				h.raw(`<img class="avatar" alt=""`)
				h.url("src", user.Picture)
				h.raw(`>`)
			}
			h.raw(`<span>`)
			h.text(user.DisplayName())
			h.raw(`</span><form method="post" action="/logout">`)
			h.raw(`<input type="hidden" name="csrf_token"`)
			h.attr("value", csrfToken)
			h.raw(`><button type="submit" class="outline">Logout</button></form></div>`)
		}
		h.raw(`</nav><main>`)
		h.render(body)
		h.raw(`</main></body></html>`)
	})
}

// Landing is the public home page.
func Landing(signedIn bool) templ.Component {
	return layout("Welcome", nil, "", component(func(h *html) {
		h.raw(`<section class="hero"><h1>Short videos from a single topic</h1>`)
		h.raw(`<p>Pick a topic and a voice, and the pipeline writes, narrates, illustrates and renders it for you.</p>`)
		if signedIn {
			h.raw(`<a class="button" href="/dashboard">Open dashboard</a>`)
		} else {
			h.raw(`<a class="button" href="/auth/login">Sign in</a>`)
		}
		h.raw(`</section>`)
	}))
}

// Login offers the backend's Google sign-in.
func Login(googleLoginURL string) templ.Component {
	return layout("Sign in", nil, "", component(func(h *html) {
		h.raw(`<section class="card narrow"><h2>Sign in</h2><a class="button wide"`)
		h.url("href", googleLoginURL)
		h.raw(`>Sign in with Google</a></section>`)
	}))
}
