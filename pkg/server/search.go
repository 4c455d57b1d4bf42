package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/entrhq/browserflow/pkg/workflow"
)

// DefaultSearchURL is the results page used by /search.
const DefaultSearchURL = "https://html.duckduckgo.com/html/?q=%s"

const defaultSearchLimit = 10

// searchScript collects result links from the common results page layouts.
const searchScript = `const items = [];
for (const el of document.querySelectorAll(".result, li.b_algo, div.g")) {
  const anchor = el.querySelector("a.result__a, h2 a, a:has(h3)");
  if (!anchor) continue;
  const snippet = el.querySelector(".result__snippet, .b_caption p, .VwiC3b");
  items.push({
    title: anchor.textContent.trim(),
    link: anchor.href,
    snippet: snippet ? snippet.textContent.trim() : "",
  });
}
return items;`

type searchRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit,omitempty"`
}

type searchResult struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet,omitempty"`
}

type searchResponse struct {
	Success bool           `json:"success"`
	Query   string         `json:"query"`
	Results []searchResult `json:"results"`
	Count   int            `json:"count"`
	URL     string         `json:"url,omitempty"`
	Title   string         `json:"title,omitempty"`
	Error   string         `json:"error,omitempty"`
}

// handleSearch loads the results page for a query on the session page and
// returns the result links found there.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, bodyErrorStatus(err), fmt.Errorf("invalid search request: %w", err))
		return
	}
	req.Query = strings.TrimSpace(req.Query)
	if req.Query == "" {
		respondError(w, http.StatusBadRequest, errors.New("query is required"))
		return
	}
	if req.Limit <= 0 {
		req.Limit = defaultSearchLimit
	}

	steps := []workflow.Step{
		{Type: string(workflow.KindNavigate), URL: s.searchURL(req.Query)},
		{Type: string(workflow.KindEvaluate), Script: searchScript},
	}
	exec, err := s.orchestrator.Run(r.Context(), steps, workflow.Options{})
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, err)
		return
	}

	response := searchResponse{Query: req.Query, Results: []searchResult{}}
	if !exec.Success {
		response.Error = exec.Error
		respondJSON(w, http.StatusUnprocessableEntity, response)
		return
	}

	results, err := decodeSearchResults(exec.Steps[len(exec.Steps)-1].Result)
	if err != nil {
		response.Error = err.Error()
		respondJSON(w, http.StatusUnprocessableEntity, response)
		return
	}
	if len(results) > req.Limit {
		results = results[:req.Limit]
	}

	response.Success = true
	response.Results = results
	response.Count = len(results)
	if exec.Final != nil {
		response.URL = exec.Final.URL
		response.Title = exec.Final.Title
	}
	respondJSON(w, http.StatusOK, response)
}

func (s *Server) searchURL(query string) string {
	return strings.Replace(s.cfg.SearchURL, "%s", url.QueryEscape(query), 1)
}

func decodeSearchResults(result *workflow.Result) ([]searchResult, error) {
	results := []searchResult{}
	if result == nil || result.Value == nil {
		return results, nil
	}

	raw, err := json.Marshal(result.Value)
	if err != nil {
		return nil, fmt.Errorf("failed to read search results: %w", err)
	}
	var found []searchResult
	if err := json.Unmarshal(raw, &found); err != nil {
		return nil, fmt.Errorf("failed to read search results: %w", err)
	}

	for _, item := range found {
		if item.Link == "" {
			continue
		}
		item.Link = resultLink(item.Link)
		if item.Title == "" {
			item.Title = item.Link
		}
		results = append(results, item)
	}
	return results, nil
}

// resultLink unwraps DuckDuckGo redirect links to their target.
func resultLink(link string) string {
	u, err := url.Parse(link)
	if err != nil || !strings.HasSuffix(u.Hostname(), "duckduckgo.com") {
		return link
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	return link
}
