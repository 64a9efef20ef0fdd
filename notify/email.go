package notify

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"log"
	"mime"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"flatshare-scraper/models"
)

// Conversion factors used in the email
const (
	WeeksPerMonth = 4.33
	AUDToEUR      = 0.61
)

const noSimilarRow = "<tr><td style='padding:8px 24px;'><i>No other listings right now 🌆</i></td></tr>"

// Mailer sends the featured listing of a batch as an HTML email through the
// Gmail API
type Mailer struct {
	service      *gmail.Service
	to           string
	subject      string
	template     string
	contactEmail string
	images       *http.Client
}

// MailerConfig holds what a Mailer needs besides the Gmail service
type MailerConfig struct {
	To           string
	Subject      string
	TemplatePath string
	ContactEmail string
}

// NewMailer loads the template and the cached consent token (running the
// console consent flow when there is none) and builds the Gmail service
func NewMailer(ctx context.Context, cfg MailerConfig, credentialsPath, tokenPath string) (*Mailer, error) {
	client, err := GmailClient(ctx, credentialsPath, tokenPath)
	if err != nil {
		return nil, err
	}

	service, err := gmail.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("failed to create gmail service: %w", err)
	}

	return NewMailerWithService(service, cfg)
}

// NewMailerWithService builds a Mailer on an existing Gmail service
func NewMailerWithService(service *gmail.Service, cfg MailerConfig) (*Mailer, error) {
	tmpl, err := os.ReadFile(cfg.TemplatePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read email template: %w", err)
	}

	return &Mailer{
		service:      service,
		to:           cfg.To,
		subject:      cfg.Subject,
		template:     string(tmpl),
		contactEmail: cfg.ContactEmail,
		images:       &http.Client{Timeout: 10 * time.Second},
	}, nil
}

// Notify emails the best-scored record of the batch, listing the others as
// similar listings. Failures are only logged.
func (m *Mailer) Notify(ctx context.Context, batch []models.Record) {
	if m == nil || len(batch) == 0 {
		return
	}

	featured, similar := SplitFeatured(batch)
	body := RenderEmail(m.template, featured, similar, m.contactEmail, func(u string) string {
		return m.inlineImage(ctx, u)
	})

	raw := BuildMIME(m.to, m.subject, body)
	_, err := m.service.Users.Messages.Send("me", &gmail.Message{Raw: raw}).Context(ctx).Do()
	if err != nil {
		log.Printf("Warning: failed to send email: %v\n", err)
		return
	}
	log.Printf("Email sent to %s\n", m.to)
}

// SplitFeatured returns the highest-scored record (first one on ties) and
// the remaining records in batch order
func SplitFeatured(batch []models.Record) (models.Record, []models.Record) {
	best := 0
	for i, r := range batch {
		if r.Analysis.Score > batch[best].Analysis.Score {
			best = i
		}
	}

	similar := make([]models.Record, 0, len(batch)-1)
	similar = append(similar, batch[:best]...)
	similar = append(similar, batch[best+1:]...)
	return batch[best], similar
}

// RenderEmail substitutes the template placeholders. inline turns an image
// URL into the src to embed; it may return the URL unchanged.
func RenderEmail(tmpl string, featured models.Record, similar []models.Record, contactEmail string, inline func(string) string) string {
	l, a := featured.Listing, featured.Analysis

	perWeek, perMonthAUD, perMonthEUR := "N/A", "N/A", "N/A"
	if l.PricePerWeek != nil {
		w := float64(*l.PricePerWeek)
		aud := roundTenth(w * WeeksPerMonth)
		perWeek = fmt.Sprintf("%.1f", w)
		perMonthAUD = fmt.Sprintf("%.1f", aud)
		perMonthEUR = fmt.Sprintf("%.1f", roundTenth(aud*AUDToEUR))
	}

	datePosted := l.DatePosted
	if datePosted == "" {
		datePosted = "N/A"
	}

	replacements := []string{
		"{{openai_subject}}", html.EscapeString(l.Title),
		"{{Quartier}}", html.EscapeString(l.Suburb),
		"{{price_per_week}}", perWeek,
		"{{price_per_month_aud}}", perMonthAUD,
		"{{price_per_month_eur}}", perMonthEUR,
		"{{date_posted}}", html.EscapeString(datePosted),
		"{{tags}}", html.EscapeString(strings.Join(a.Tags, ", ")),
		"{{summary}}", html.EscapeString(a.Summary),
		"{{reasoning}}", html.EscapeString(strings.Join(a.Reasons, " ")),
		"{{url}}", html.EscapeString(l.URL),
		"{{contact_email}}", html.EscapeString(contactEmail),
		"{{similar_listings}}", similarRows(similar, inline),
	}
	return strings.NewReplacer(replacements...).Replace(tmpl)
}

func similarRows(similar []models.Record, inline func(string) string) string {
	if len(similar) == 0 {
		return noSimilarRow
	}

	var sb strings.Builder
	for _, r := range similar {
		price := "N/A"
		if r.Listing.PricePerWeek != nil {
			price = fmt.Sprintf("%d", *r.Listing.PricePerWeek)
		}
		fmt.Fprintf(&sb, `
<tr>
  <td style='width:90px; padding:8px 0 8px 24px;'>
    <img src='%s' width='80' height='80' style='object-fit:cover; border-radius:8px;'>
  </td>
  <td style='padding:8px 24px; vertical-align:middle;'>
    <a href='%s' style='font-size:15px; color:#007aff; text-decoration:none; font-weight:600;'>%s</a><br>
    <span style='font-size:13px; color:#666;'>%s — $%s/week</span>
  </td>
</tr>`,
			html.EscapeString(inline(r.Listing.ImageURL)),
			html.EscapeString(r.Listing.URL),
			html.EscapeString(r.Listing.Title),
			html.EscapeString(r.Listing.Suburb),
			price,
		)
	}
	return sb.String()
}

// inlineImage downloads an image and returns it as a data URI. Anything
// that goes wrong yields the original URL.
func (m *Mailer) inlineImage(ctx context.Context, imageURL string) string {
	if imageURL == "" {
		return ""
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return imageURL
	}
	resp, err := m.images.Do(req)
	if err != nil {
		log.Printf("Warning: failed to fetch image %s: %v\n", imageURL, err)
		return imageURL
	}
	defer resp.Body.Close()

	contentType := resp.Header.Get("Content-Type")
	if resp.StatusCode != http.StatusOK || !strings.HasPrefix(contentType, "image/") {
		return imageURL
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 2<<20))
	if err != nil {
		return imageURL
	}
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// BuildMIME builds a single-part HTML message and returns it base64url
// encoded, as the Gmail API expects in Message.Raw
func BuildMIME(to, subject, body string) string {
	var sb strings.Builder
	sb.WriteString("To: " + to + "\r\n")
	sb.WriteString("Subject: " + mime.BEncoding.Encode("UTF-8", subject) + "\r\n")
	sb.WriteString("MIME-Version: 1.0\r\n")
	sb.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	sb.WriteString("Content-Transfer-Encoding: base64\r\n\r\n")

	encoded := base64.StdEncoding.EncodeToString([]byte(body))
	for len(encoded) > 76 {
		sb.WriteString(encoded[:76] + "\r\n")
		encoded = encoded[76:]
	}
	sb.WriteString(encoded + "\r\n")

	return base64.URLEncoding.EncodeToString([]byte(sb.String()))
}

func roundTenth(v float64) float64 {
	return float64(int64(v*10+0.5)) / 10
}

// GmailClient returns an HTTP client authorised to send mail. The token is
// read from tokenPath; without one the user is walked through the consent
// flow on the console and the token is cached for the next run.
func GmailClient(ctx context.Context, credentialsPath, tokenPath string) (*http.Client, error) {
	b, err := os.ReadFile(credentialsPath)
	if err != nil {
		return nil, fmt.Errorf("unable to read client secret file: %w", err)
	}

	config, err := google.ConfigFromJSON(b, gmail.GmailSendScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse client secret file: %w", err)
	}

	tok, err := tokenFromFile(tokenPath)
	if err != nil {
		tok, err = tokenFromConsole(ctx, config, os.Stdin)
		if err != nil {
			return nil, err
		}
		if err := saveToken(tokenPath, tok); err != nil {
			log.Printf("Warning: %v\n", err)
		}
	}
	return cachedClient(ctx, config, tok, tokenPath), nil
}

// cachedClient returns a client whose token refreshes outlive ctx's
// cancellation and are written back to tokenPath
func cachedClient(ctx context.Context, config *oauth2.Config, tok *oauth2.Token, tokenPath string) *http.Client {
	ctx = context.WithoutCancel(ctx)
	src := &savingTokenSource{
		base: config.TokenSource(ctx, tok),
		path: tokenPath,
		last: tok.AccessToken,
	}
	return oauth2.NewClient(ctx, oauth2.ReuseTokenSource(tok, src))
}

// savingTokenSource persists every new access token it hands out
type savingTokenSource struct {
	base oauth2.TokenSource
	path string

	mu   sync.Mutex
	last string
}

func (s *savingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := s.base.Token()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if tok.AccessToken != s.last {
		s.last = tok.AccessToken
		if err := saveToken(s.path, tok); err != nil {
			log.Printf("Warning: %v\n", err)
		}
	}
	return tok, nil
}

// tokenFromConsole prints the consent URL and exchanges the pasted code
func tokenFromConsole(ctx context.Context, config *oauth2.Config, in io.Reader) (*oauth2.Token, error) {
	authURL := config.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
	fmt.Printf("Go to the following link in your browser then type the authorization code:\n%v\n", authURL)

	var authCode string
	if _, err := fmt.Fscan(in, &authCode); err != nil {
		return nil, fmt.Errorf("unable to read authorization code: %w", err)
	}

	tok, err := config.Exchange(ctx, authCode)
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve token from web: %w", err)
	}
	return tok, nil
}

func tokenFromFile(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	tok := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(tok); err != nil {
		return nil, fmt.Errorf("failed to decode token file: %w", err)
	}
	return tok, nil
}

func saveToken(path string, token *oauth2.Token) error {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("unable to cache oauth token: %w", err)
	}
	defer f.Close()
	return json.NewEncoder(f).Encode(token)
}
