package edgar

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// IndexDocument is one file in a filing's archive directory.
type IndexDocument struct {
	Name string
	Type string
	Size int
	URL  string
}

// ArchiveURL builds the document URL for a filing artifact:
// /Archives/edgar/data/{cik}/{accessionNoDashes}/{doc}.
func (c *Client) ArchiveURL(cik, accession, doc string) string {
	return fmt.Sprintf("%s/Archives/edgar/data/%s/%s/%s",
		c.wwwBase, StripCIK(cik), strings.ReplaceAll(accession, "-", ""), doc)
}

// FetchFilingIndex retrieves and parses the filing's index.json, the
// directory listing of every file shipped with the filing.
func (c *Client) FetchFilingIndex(ctx context.Context, cik, accession string) ([]IndexDocument, error) {
	url := c.ArchiveURL(cik, accession, "index.json")
	body, err := c.Fetch(ctx, url, AcceptJSON)
	if err != nil {
		return nil, fmt.Errorf("fetch filing index: %w", err)
	}

	var index struct {
		Directory struct {
			Item []struct {
				Name string `json:"name"`
				Type string `json:"type"`
				Size string `json:"size"`
			} `json:"item"`
		} `json:"directory"`
	}
	if err := json.Unmarshal(body, &index); err != nil {
		return nil, fmt.Errorf("parse filing index: %w", err)
	}

	docs := make([]IndexDocument, 0, len(index.Directory.Item))
	for _, item := range index.Directory.Item {
		size := 0
		fmt.Sscanf(item.Size, "%d", &size)
		docs = append(docs, IndexDocument{
			Name: item.Name,
			Type: item.Type,
			Size: size,
			URL:  c.ArchiveURL(cik, accession, item.Name),
		})
	}
	return docs, nil
}

// SelectInformationTable picks the 13F information-table XML out of a
// filing's file index. Conventional names are tried first; some filers
// ship the table under opaque numeric filenames, in which case the
// largest XML that is neither the primary document nor an index file is
// taken.
func SelectInformationTable(docs []IndexDocument, primaryDocument string) *IndexDocument {
	primaryLower := strings.ToLower(primaryDocument)

	for i := range docs {
		nameLower := strings.ToLower(docs[i].Name)
		if !strings.HasSuffix(nameLower, ".xml") {
			continue
		}
		if strings.Contains(nameLower, "infotable") || strings.Contains(nameLower, "information") {
			return &docs[i]
		}
	}

	var fallback *IndexDocument
	for i := range docs {
		nameLower := strings.ToLower(docs[i].Name)
		if !strings.HasSuffix(nameLower, ".xml") {
			continue
		}
		if nameLower == primaryLower || strings.Contains(nameLower, "index") {
			continue
		}
		if fallback == nil || docs[i].Size > fallback.Size {
			fallback = &docs[i]
		}
	}
	return fallback
}
