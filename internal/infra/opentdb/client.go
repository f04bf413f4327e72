package opentdb

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/Tarasyah/TriviaQuiz/internal/domain"
)

const (
	// DefaultBaseURL is the public Open Trivia DB endpoint.
	DefaultBaseURL = "https://opentdb.com/api.php"
	// DefaultAmount matches the batch size the web client asks for.
	DefaultAmount = 10
)

// rawQuestion mirrors one entry of the api.php results array. Every text
// field arrives base64-encoded because we request encode=base64; entities
// are therefore already literal and need no HTML unescaping.
type rawQuestion struct {
	Type             string   `json:"type"`
	Difficulty       string   `json:"difficulty"`
	Category         string   `json:"category"`
	Question         string   `json:"question"`
	CorrectAnswer    string   `json:"correct_answer"`
	IncorrectAnswers []string `json:"incorrect_answers"`
}

type apiResponse struct {
	ResponseCode int           `json:"response_code"`
	Results      []rawQuestion `json:"results"`
}

// Client fetches multiple-choice questions from Open Trivia DB.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

func NewClient(httpClient *http.Client, baseURL string) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{httpClient: httpClient, baseURL: baseURL}
}

// FetchQuestions requests amount questions, decodes the base64 transport
// encoding, and validates the envelope. Any transport failure maps to
// ErrSourceUnavailable and any malformed payload to ErrSourceInvalid; the
// caller decides whether to fail soft.
func (c *Client) FetchQuestions(ctx context.Context, amount int) ([]domain.Question, error) {
	if amount <= 0 {
		amount = DefaultAmount
	}

	query := url.Values{}
	query.Set("amount", strconv.Itoa(amount))
	query.Set("type", "multiple")
	query.Set("encode", "base64")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSourceUnavailable, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", domain.ErrSourceUnavailable, resp.StatusCode)
	}

	var payload apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSourceInvalid, err)
	}
	if payload.ResponseCode != 0 {
		return nil, fmt.Errorf("%w: response_code=%d", domain.ErrSourceInvalid, payload.ResponseCode)
	}
	if len(payload.Results) != amount {
		return nil, fmt.Errorf("%w: got %d of %d entries", domain.ErrSourceInvalid, len(payload.Results), amount)
	}

	questions := make([]domain.Question, 0, len(payload.Results))
	for _, item := range payload.Results {
		question, err := decodeQuestion(item)
		if err != nil {
			return nil, err
		}
		questions = append(questions, question)
	}
	return questions, nil
}

func decodeQuestion(raw rawQuestion) (domain.Question, error) {
	category, err := decodeField(raw.Category)
	if err != nil {
		return domain.Question{}, err
	}
	difficulty, err := decodeField(raw.Difficulty)
	if err != nil {
		return domain.Question{}, err
	}
	text, err := decodeField(raw.Question)
	if err != nil {
		return domain.Question{}, err
	}
	correct, err := decodeField(raw.CorrectAnswer)
	if err != nil {
		return domain.Question{}, err
	}
	if text == "" || correct == "" || len(raw.IncorrectAnswers) == 0 {
		return domain.Question{}, fmt.Errorf("%w: incomplete question entry", domain.ErrSourceInvalid)
	}

	incorrect := make([]string, 0, len(raw.IncorrectAnswers))
	for _, encoded := range raw.IncorrectAnswers {
		answer, err := decodeField(encoded)
		if err != nil {
			return domain.Question{}, err
		}
		if answer == "" {
			// An empty option string would collide with the unset answer slot.
			return domain.Question{}, fmt.Errorf("%w: empty answer option", domain.ErrSourceInvalid)
		}
		incorrect = append(incorrect, answer)
	}

	return domain.Question{
		Category:         category,
		Difficulty:       difficulty,
		Text:             text,
		CorrectAnswer:    correct,
		IncorrectAnswers: incorrect,
	}, nil
}

func decodeField(encoded string) (string, error) {
	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("%w: bad base64 field: %v", domain.ErrSourceInvalid, err)
	}
	return string(decoded), nil
}
