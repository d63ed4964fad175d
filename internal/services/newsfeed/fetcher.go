package newsfeed

import (
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/encoding/htmlindex"
)

// 抓取超时
const fetchTimeout = 10 * time.Second

var httpClient = &http.Client{Timeout: fetchTimeout}

// fetchDocument 抓取页面并按响应声明的字符集解码
func fetchDocument(url string) (*goquery.Document, error) {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) ycp/1.0")

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, url)
	}

	body, err := decodeCharset(resp)
	if err != nil {
		return nil, err
	}
	return goquery.NewDocumentFromReader(body)
}

// decodeCharset 非 UTF-8 页面按 Content-Type 声明的字符集转码
func decodeCharset(resp *http.Response) (io.Reader, error) {
	_, params, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil {
		return resp.Body, nil
	}
	charset := strings.ToLower(params["charset"])
	if charset == "" || charset == "utf-8" || charset == "utf8" {
		return resp.Body, nil
	}
	enc, err := htmlindex.Get(charset)
	if err != nil {
		return nil, fmt.Errorf("unsupported charset %s: %w", charset, err)
	}
	return enc.NewDecoder().Reader(resp.Body), nil
}

// HackerNewsFetcher HN 首页标题
type HackerNewsFetcher struct{}

// NewHackerNewsFetcher 创建 HN 抓取器
func NewHackerNewsFetcher() *HackerNewsFetcher {
	return &HackerNewsFetcher{}
}

// Source 返回来源标识
func (f *HackerNewsFetcher) Source() string {
	return "hackernews"
}

// Fetch 抓取 HN 首页标题
func (f *HackerNewsFetcher) Fetch() ([]Headline, error) {
	doc, err := fetchDocument("https://news.ycombinator.com/")
	if err != nil {
		return nil, err
	}

	var items []Headline
	doc.Find("span.titleline > a").Each(func(i int, s *goquery.Selection) {
		title := strings.TrimSpace(s.Text())
		if title == "" {
			return
		}
		href, _ := s.Attr("href")
		items = append(items, Headline{
			Title:  title,
			URL:    href,
			Source: f.Source(),
			Rank:   i + 1,
		})
	})
	if len(items) == 0 {
		return nil, fmt.Errorf("no headlines parsed from hackernews")
	}
	return items, nil
}

// CNNLiteFetcher CNN 文字版标题
type CNNLiteFetcher struct{}

// NewCNNLiteFetcher 创建 CNN 抓取器
func NewCNNLiteFetcher() *CNNLiteFetcher {
	return &CNNLiteFetcher{}
}

// Source 返回来源标识
func (f *CNNLiteFetcher) Source() string {
	return "cnn"
}

// Fetch 抓取 CNN lite 首页标题
func (f *CNNLiteFetcher) Fetch() ([]Headline, error) {
	doc, err := fetchDocument("https://lite.cnn.com/")
	if err != nil {
		return nil, err
	}

	var items []Headline
	doc.Find("li.card--lite a").Each(func(i int, s *goquery.Selection) {
		title := strings.TrimSpace(s.Text())
		if title == "" {
			return
		}
		href, _ := s.Attr("href")
		if strings.HasPrefix(href, "/") {
			href = "https://lite.cnn.com" + href
		}
		items = append(items, Headline{
			Title:  title,
			URL:    href,
			Source: f.Source(),
			Rank:   i + 1,
		})
	})
	if len(items) == 0 {
		return nil, fmt.Errorf("no headlines parsed from cnn lite")
	}
	return items, nil
}
