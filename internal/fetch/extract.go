package fetch

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/tidwall/gjson"

	"trawl/internal/services"
)

// ExtractEmbedded finds the <script> element with id scriptID in page, parses
// its JSON body, and returns the object at path.
func ExtractEmbedded(page []byte, scriptID, path string) (gjson.Result, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return gjson.Result{}, services.Wrap(services.ErrTransient, "extract", "parse html", "", err)
	}

	script := doc.Find("script").FilterFunction(func(_ int, s *goquery.Selection) bool {
		id, _ := s.Attr("id")
		return id == scriptID
	}).First()
	if script.Length() == 0 {
		return gjson.Result{}, services.Wrap(services.ErrTransient, "extract", "locate data", "embedded data script missing; upstream served an incomplete page", nil)
	}

	raw := strings.TrimSpace(script.Text())
	if raw == "" || raw == "{}" || raw == "null" {
		return gjson.Result{}, services.Wrap(services.ErrTransient, "extract", "read data", "no data from url", nil)
	}
	if !gjson.Valid(raw) {
		return gjson.Result{}, services.Wrap(services.ErrTransient, "extract", "read data", "embedded data is not valid json", nil)
	}

	result := gjson.Get(raw, path)
	if !result.Exists() || !result.IsObject() {
		return gjson.Result{}, services.Wrap(services.ErrStructural, "extract", "locate item", "expected path missing: "+path, nil)
	}
	return result, nil
}
