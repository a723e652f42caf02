package gnews

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/wonny/recap/backend/internal/contracts"
)

type rssFeed struct {
	Channel struct {
		Items []rssItem `xml:"item"`
	} `xml:"channel"`
}

type rssItem struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	PubDate     string `xml:"pubDate"`
	Description string `xml:"description"`
	Source      string `xml:"source"`
}

// parseFeed converts an RSS document into news items.
// Items without title or link are dropped individually.
func parseFeed(instrument contracts.Instrument, body []byte) ([]contracts.NewsItem, int, error) {
	var feed rssFeed
	if err := xml.NewDecoder(bytes.NewReader(body)).Decode(&feed); err != nil {
		return nil, 0, fmt.Errorf("decode rss %s: %w", instrument, err)
	}

	items := make([]contracts.NewsItem, 0, len(feed.Channel.Items))
	dropped := 0
	for _, it := range feed.Channel.Items {
		title := strings.TrimSpace(it.Title)
		link := strings.TrimSpace(it.Link)
		if title == "" || link == "" {
			dropped++
			continue
		}

		publisher := strings.TrimSpace(it.Source)
		if publisher == "" {
			// "Headline - Publisher" 형식에서 추출
			if i := strings.LastIndex(title, " - "); i > 0 {
				publisher = title[i+3:]
			}
		}
		if publisher != "" {
			title = strings.TrimSuffix(title, " - "+publisher)
		}

		items = append(items, contracts.NewsItem{
			Instrument:  instrument,
			Title:       title,
			Publisher:   publisher,
			Link:        link,
			PublishedAt: parsePubDate(it.PubDate),
			Summary:     htmlText(it.Description),
		})
	}

	return items, dropped, nil
}

// htmlText flattens the HTML fragment Google puts in <description>
func htmlText(fragment string) string {
	if strings.TrimSpace(fragment) == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return ""
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}

func parsePubDate(s string) time.Time {
	s = strings.TrimSpace(s)
	for _, layout := range []string{time.RFC1123, time.RFC1123Z, time.RFC822, time.RFC822Z} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
