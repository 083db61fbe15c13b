package services

import (
	"context"
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/Dosada05/valorant-arena/models"
	"github.com/Dosada05/valorant-arena/repositories"
)

const sitemapNamespace = "http://www.sitemaps.org/schemas/sitemap/0.9"

type SitemapURL struct {
	Loc        string `xml:"loc"`
	LastMod    string `xml:"lastmod,omitempty"`
	ChangeFreq string `xml:"changefreq,omitempty"`
	Priority   string `xml:"priority,omitempty"`
}

type Sitemap struct {
	XMLName xml.Name     `xml:"urlset"`
	XMLNS   string       `xml:"xmlns,attr"`
	URLs    []SitemapURL `xml:"url"`
}

type SEOService interface {
	Sitemap(ctx context.Context) ([]byte, error)
	Robots() string
}

type seoService struct {
	tournamentRepo repositories.TournamentRepository
	siteURL        string
}

func NewSEOService(tournamentRepo repositories.TournamentRepository, siteURL string) SEOService {
	return &seoService{
		tournamentRepo: tournamentRepo,
		siteURL:        strings.TrimRight(siteURL, "/"),
	}
}

func (s *seoService) Sitemap(ctx context.Context) ([]byte, error) {
	tournaments, err := s.tournamentRepo.ListPublic(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tournaments for sitemap: %w", err)
	}

	sitemap := Sitemap{
		XMLNS: sitemapNamespace,
		URLs: []SitemapURL{
			{Loc: s.siteURL + "/", ChangeFreq: "daily", Priority: "1.0"},
			{Loc: s.siteURL + "/tournaments", ChangeFreq: "daily", Priority: "0.9"},
			{Loc: s.siteURL + "/free-agents", ChangeFreq: "daily", Priority: "0.7"},
		},
	}
	for _, t := range tournaments {
		sitemap.URLs = append(sitemap.URLs, tournamentSitemapURL(s.siteURL, t))
	}

	out, err := xml.MarshalIndent(sitemap, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode sitemap: %w", err)
	}
	return append([]byte(xml.Header), out...), nil
}

func tournamentSitemapURL(siteURL string, t models.Tournament) SitemapURL {
	lastMod := t.CreatedAt
	if t.StartDate.After(lastMod) {
		lastMod = t.StartDate
	}
	freq := "weekly"
	if t.Status == models.StatusRegistration || t.Status == models.StatusActive {
		freq = "daily"
	}
	return SitemapURL{
		Loc:        siteURL + "/tournaments/" + t.Slug,
		LastMod:    lastMod.UTC().Format("2006-01-02"),
		ChangeFreq: freq,
		Priority:   "0.8",
	}
}

func (s *seoService) Robots() string {
	var b strings.Builder
	b.WriteString("User-agent: *\n")
	b.WriteString("Allow: /\n")
	b.WriteString("Disallow: /admin\n")
	b.WriteString("Disallow: /api/\n")
	b.WriteString("\n")
	fmt.Fprintf(&b, "Sitemap: %s/sitemap.xml\n", s.siteURL)
	return b.String()
}
