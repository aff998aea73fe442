package main

import (
	"strings"

	"github.com/samber/lo"
)

// Project is one portfolio card. Details is the long text handed to the model.
type Project struct {
	Slug    string
	Title   string
	Summary string
	Details string
	Tags    []string
}

var AboutMe = `I love building software that's both useful and fun, and I'm always curious about how things work behind the scenes.
Most of my projects start with a simple idea and turn into a chance to learn something new, whether it's exploring a
different language, experimenting with tools, or solving tricky problems.`

var defaultProjects = []Project{
	{
		Slug:    "terminal-mail",
		Title:   "Terminal Mail",
		Summary: "A terminal-based email client with fuzzy finding.",
		Details: `A terminal-based email client built in Go with fuzzyfinder capabilities using the Charmbracelet
TUI framework and go-imap. Supports multiple IMAP accounts, threaded conversations, offline caching of headers
and keyboard-driven triage of large inboxes.`,
		Tags: []string{"Go", "Bubble Tea", "IMAP"},
	},
	{
		Slug:    "terminal-music",
		Title:   "Terminal Music",
		Summary: "YouTube Music playback from the command line.",
		Details: `A terminal-based music streaming application built in Go with a TUI interface, leveraging
yt-dlp and mpv for YouTube Music playback directly from the command line. Handles search, queues and playlists
and controls mpv over its JSON IPC socket.`,
		Tags: []string{"Go", "mpv", "yt-dlp"},
	},
	{
		Slug:    "game-recommender",
		Title:   "Game Recommender",
		Summary: "Content-based game recommendations with TF-IDF.",
		Details: `A machine learning-powered web application that uses TF-IDF vectorization and cosine similarity
to recommend games based on content analysis, featuring interactive data visualizations and real-time filtering
by user reviews and ratings.`,
		Tags: []string{"Python", "scikit-learn", "Data Viz"},
	},
	{
		Slug:    "portfolio",
		Title:   "This Portfolio",
		Summary: "Go, Gin and HTMX with a server-side AI proxy.",
		Details: `A responsive portfolio website built with Go, the Gin framework and HTMX for dynamic
interactions. Project cards can ask a generative language model for a case study or answer visitor questions
through a server-side proxy that keeps the API key off the client, with privacy-conscious analytics in SQLite.`,
		Tags: []string{"Go", "Gin", "HTMX", "SQLite"},
	},
}

type Catalog struct {
	projects []Project
}

func NewCatalog(projects []Project) *Catalog {
	return &Catalog{projects: projects}
}

func (c *Catalog) All() []Project {
	return c.projects
}

func (c *Catalog) Find(slug string) (Project, bool) {
	slug = strings.ToLower(strings.TrimSpace(slug))
	return lo.Find(c.projects, func(p Project) bool {
		return p.Slug == slug
	})
}
