package bili

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"
	"sync"
	"time"
)

// mixinKeyEncTab is the published permutation applied to imgKey+subKey when
// deriving the mixin key. The remote verifies signatures against exactly this
// table; it must never be reordered.
var mixinKeyEncTab = [64]int{
	46, 47, 18, 2, 53, 8, 23, 32, 15, 50, 10, 31, 58, 3, 45, 35, 27, 43, 5, 49,
	33, 9, 42, 19, 29, 28, 14, 39, 12, 38, 41, 13, 37, 48, 7, 16, 24, 55, 40,
	61, 26, 17, 0, 1, 60, 51, 30, 4, 22, 25, 54, 21, 56, 59, 6, 63, 57, 62, 11,
	36, 20, 34, 44, 52,
}

// keyCacheTTL bounds how long discovered WBI keys are reused. A single run
// never comes close to it in practice.
const keyCacheTTL = 24 * time.Hour

// valueStripper removes the characters the remote excludes from signed values.
var valueStripper = strings.NewReplacer("!", "", "'", "", "(", "", ")", "", "*", "")

// Signer maintains the rolling WBI key pair and produces signed parameter
// sets. Keys are fetched lazily from the nav discovery endpoint and cached;
// concurrent first-time callers block on a single refresh.
type Signer struct {
	httpClient *http.Client
	navURL     string
	userAgent  string
	referer    string

	mu        sync.Mutex
	imgKey    string
	subKey    string
	fetchedAt time.Time

	now func() time.Time
}

// NewSigner creates a Signer fetching keys from navURL (the
// /x/web-interface/nav endpoint of the configured API base).
func NewSigner(client *http.Client, navURL, userAgent, referer string) *Signer {
	if client == nil {
		client = http.DefaultClient
	}
	return &Signer{
		httpClient: client,
		navURL:     navURL,
		userAgent:  userAgent,
		referer:    referer,
		now:        time.Now,
	}
}

// Keys returns the current img/sub key pair, refreshing from the discovery
// endpoint when the cache is empty or older than 24 hours.
func (s *Signer) Keys(ctx context.Context) (string, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.imgKey != "" && s.now().Sub(s.fetchedAt) < keyCacheTTL {
		return s.imgKey, s.subKey, nil
	}

	img, sub, err := s.fetchKeys(ctx)
	if err != nil {
		return "", "", err
	}
	s.imgKey, s.subKey = img, sub
	s.fetchedAt = s.now()
	return img, sub, nil
}

// Sign returns a new parameter set carrying wts and w_rid. The input is not
// mutated.
func (s *Signer) Sign(ctx context.Context, params url.Values) (url.Values, error) {
	img, sub, err := s.Keys(ctx)
	if err != nil {
		return nil, fmt.Errorf("wbi keys: %w", err)
	}
	return SignParams(params, img, sub, s.now()), nil
}

// SignParams implements the WBI signing wire format: insert wts, sort by key,
// strip forbidden characters from values, form-encode, and append the MD5 of
// query+mixinKey as w_rid. Pure given the keys and timestamp.
func SignParams(params url.Values, imgKey, subKey string, now time.Time) url.Values {
	mixin := mixinKey(imgKey + subKey)

	signed := url.Values{}
	for k, vs := range params {
		for _, v := range vs {
			signed.Add(k, valueStripper.Replace(v))
		}
	}
	signed.Set("wts", fmt.Sprintf("%d", now.Unix()))

	// Encode sorts by key, which is exactly the canonical ordering the
	// remote expects.
	query := signed.Encode()

	sum := md5.Sum([]byte(query + mixin))
	signed.Set("w_rid", hex.EncodeToString(sum[:]))
	return signed
}

// mixinKey permutes the concatenated key pair by the published table and
// truncates to 32 characters.
func mixinKey(orig string) string {
	var b strings.Builder
	b.Grow(32)
	for _, idx := range mixinKeyEncTab {
		if idx < len(orig) {
			b.WriteByte(orig[idx])
		}
	}
	key := b.String()
	if len(key) > 32 {
		key = key[:32]
	}
	return key
}

func (s *Signer) fetchKeys(ctx context.Context) (string, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.navURL, nil)
	if err != nil {
		return "", "", fmt.Errorf("build nav request: %w", err)
	}
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Referer", s.referer)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("fetch wbi keys: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("fetch wbi keys: unexpected status %d", resp.StatusCode)
	}

	var nav struct {
		Data struct {
			WbiImg struct {
				ImgURL string `json:"img_url"`
				SubURL string `json:"sub_url"`
			} `json:"wbi_img"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&nav); err != nil {
		return "", "", fmt.Errorf("decode nav response: %w", err)
	}

	img := keyFromURL(nav.Data.WbiImg.ImgURL)
	sub := keyFromURL(nav.Data.WbiImg.SubURL)
	if img == "" || sub == "" {
		return "", "", fmt.Errorf("nav response carries no wbi keys")
	}
	return img, sub, nil
}

// keyFromURL extracts the basename-without-extension of a key URL.
func keyFromURL(raw string) string {
	base := path.Base(raw)
	return strings.TrimSuffix(base, path.Ext(base))
}
