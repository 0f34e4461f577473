package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	config "github.com/postpilothq/postpilot/configs"
	"github.com/postpilothq/postpilot/internal/models"
	"github.com/postpilothq/postpilot/internal/repository"
	"github.com/postpilothq/postpilot/internal/transfer"
	"github.com/postpilothq/postpilot/pkg/utils"
)

const (
	defaultGraphBaseURL = "https://graph.instagram.com/v21.0"

	// Video containers are processed asynchronously by the Graph API; we
	// poll their status on a fixed delay with a hard attempt bound.
	containerPollDelay    = 5 * time.Second
	containerPollAttempts = 30
)

type InstagramService interface {
	Publisher
	InstagramCallback(ctx context.Context, code string, userID int64) error
	RefreshInstagramToken(ctx context.Context, conn *models.Connection) error
}

type instagramService struct {
	cfg     config.Config
	cr      repository.ConnectionRepository
	client  *http.Client
	baseURL string
	sleep   func(time.Duration)
}

func NewInstagramService(cfg config.Config, cr repository.ConnectionRepository) InstagramService {
	return &instagramService{
		cfg:     cfg,
		cr:      cr,
		client:  http.DefaultClient,
		baseURL: defaultGraphBaseURL,
		sleep:   time.Sleep,
	}
}

// Publish pushes one post to the linked Instagram account. Images are a
// create+publish call pair; videos go through a processing container that
// is polled until Instagram reports it finished.
func (s *instagramService) Publish(ctx context.Context, conn *models.Connection, mediaURL, caption, mediaType string) (string, error) {
	accessToken, err := utils.Decrypt(conn.AccessToken, []byte(s.cfg.SecretKey))
	if err != nil {
		return "", fmt.Errorf("decrypting access token: %w", err)
	}

	var containerID string
	switch mediaType {
	case models.MediaTypeVideo:
		containerID, err = s.createVideoContainer(ctx, conn.AccountID, mediaURL, caption, accessToken)
		if err != nil {
			return "", err
		}
		if err := s.waitForContainer(ctx, containerID, accessToken); err != nil {
			return "", err
		}
	default:
		containerID, err = s.createImageContainer(ctx, conn.AccountID, mediaURL, caption, accessToken)
		if err != nil {
			return "", err
		}
	}

	return s.publishContainer(ctx, conn.AccountID, containerID, accessToken)
}

func (s *instagramService) createImageContainer(ctx context.Context, accountID, imageURL, caption, accessToken string) (string, error) {
	payload := map[string]interface{}{
		"image_url":    imageURL,
		"caption":      caption,
		"access_token": accessToken,
	}
	return s.postForID(ctx, fmt.Sprintf("%s/%s/media", s.baseURL, accountID), payload)
}

func (s *instagramService) createVideoContainer(ctx context.Context, accountID, videoURL, caption, accessToken string) (string, error) {
	payload := map[string]interface{}{
		"media_type":   "REELS",
		"video_url":    videoURL,
		"caption":      caption,
		"access_token": accessToken,
	}
	return s.postForID(ctx, fmt.Sprintf("%s/%s/media", s.baseURL, accountID), payload)
}

// waitForContainer polls the container's status_code until FINISHED. A
// terminal error state or exhausting the attempt bound fails the publish
// before anything goes live.
func (s *instagramService) waitForContainer(ctx context.Context, containerID, accessToken string) error {
	statusURL := fmt.Sprintf("%s/%s?fields=status_code&access_token=%s", s.baseURL, containerID, url.QueryEscape(accessToken))

	for attempt := 0; attempt < containerPollAttempts; attempt++ {
		if attempt > 0 {
			s.sleep(containerPollDelay)
		}

		req, err := http.NewRequestWithContext(ctx, "GET", statusURL, nil)
		if err != nil {
			return fmt.Errorf("error creating request: %w", err)
		}

		resp, err := s.client.Do(req)
		if err != nil {
			return fmt.Errorf("HTTP request error: %w", err)
		}

		var result struct {
			StatusCode string `json:"status_code"`
		}
		err = json.NewDecoder(resp.Body).Decode(&result)
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("error parsing container status: %w", err)
		}

		switch result.StatusCode {
		case "FINISHED":
			return nil
		case "ERROR", "EXPIRED":
			return fmt.Errorf("video container %s ended in state %s", containerID, result.StatusCode)
		}
	}

	return fmt.Errorf("video container %s not ready after %d attempts", containerID, containerPollAttempts)
}

func (s *instagramService) publishContainer(ctx context.Context, accountID, containerID, accessToken string) (string, error) {
	payload := map[string]interface{}{
		"creation_id":  containerID,
		"access_token": accessToken,
	}
	return s.postForID(ctx, fmt.Sprintf("%s/%s/media_publish", s.baseURL, accountID), payload)
}

func (s *instagramService) postForID(ctx context.Context, reqURL string, payload map[string]interface{}) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("error marshalling payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", reqURL, bytes.NewBuffer(body))
	if err != nil {
		return "", fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("HTTP request error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("unexpected status code from Instagram: %d (%s)", resp.StatusCode, respBody)
	}

	var result struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("error parsing response: %w", err)
	}

	if result.ID == "" {
		return "", errors.New("no media ID returned from Instagram")
	}

	return result.ID, nil
}

func (s *instagramService) InstagramCallback(ctx context.Context, code string, userID int64) error {
	if code == "" {
		err := errors.New("code is empty")
		slog.Info(err.Error())
		return err
	}

	if userID == 0 {
		err := errors.New("user not found")
		slog.Info(err.Error())
		return err
	}

	token, err := s.exchangeCodeForToken(ctx, code)
	if err != nil {
		return err
	}

	userInfo, err := s.getInstagramUserInfo(token.LongLivedToken)
	if err != nil {
		return err
	}

	encryptedAccessToken, err := utils.Encrypt([]byte(token.AccessToken), []byte(s.cfg.SecretKey))
	if err != nil {
		return err
	}

	conn := &models.Connection{
		UserID:         userID,
		AccountID:      userInfo.UserID,
		AccountName:    userInfo.Name,
		Username:       userInfo.Username,
		AccessToken:    encryptedAccessToken,
		IsConnected:    true,
		TokenExpiresAt: token.ExpiresAt,
	}

	_, err = s.cr.Upsert(ctx, conn)
	if err != nil {
		return err
	}

	return nil
}

func (s *instagramService) getShortLivedToken(code string) (*transfer.InstagramToken, error) {
	data := url.Values{}
	data.Set("client_id", s.cfg.InstagramClientID)
	data.Set("client_secret", s.cfg.InstagramClientSecret)
	data.Set("grant_type", "authorization_code")
	data.Set("redirect_uri", s.cfg.InstagramRedirectURI)
	data.Set("code", code)

	resp, err := s.client.Post(
		"https://api.instagram.com/oauth/access_token",
		"application/x-www-form-urlencoded",
		strings.NewReader(data.Encode()),
	)
	if err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("failed to get short-lived token: %v", err)
	}
	defer resp.Body.Close()

	var result struct {
		AccessToken string `json:"access_token"`
		UserID      int    `json:"user_id"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("failed to decode token response: %v", err)
	}

	return &transfer.InstagramToken{
		UserID:      result.UserID,
		AccessToken: result.AccessToken,
		ExpiresAt:   time.Now().Add(time.Hour),
	}, nil
}

func (s *instagramService) getLongLivedToken(shortLivedToken string) (string, time.Time, error) {
	reqURL := fmt.Sprintf(
		"https://graph.instagram.com/access_token?grant_type=ig_exchange_token&client_secret=%s&access_token=%s",
		s.cfg.InstagramClientSecret,
		shortLivedToken,
	)

	resp, err := s.client.Get(reqURL)
	if err != nil {
		slog.Info(err.Error())
		return "", time.Time{}, fmt.Errorf("failed to get long-lived token: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", time.Time{}, fmt.Errorf("error response from Instagram: %s (status code: %d)", body, resp.StatusCode)
	}

	var result struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
		ExpiresIn   int64  `json:"expires_in"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		slog.Info(err.Error())
		return "", time.Time{}, fmt.Errorf("failed to decode long-lived token response: %v", err)
	}

	return result.AccessToken, time.Now().Add(time.Second * time.Duration(result.ExpiresIn)), nil
}

func (s *instagramService) exchangeCodeForToken(ctx context.Context, code string) (*transfer.InstagramToken, error) {
	shortLivedToken, err := s.getShortLivedToken(code)
	if err != nil {
		return nil, fmt.Errorf("failed to get short-lived token: %v", err)
	}

	longLivedToken, expiresAt, err := s.getLongLivedToken(shortLivedToken.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to get long-lived token: %v", err)
	}

	return &transfer.InstagramToken{
		AccessToken:    longLivedToken,
		LongLivedToken: longLivedToken,
		ExpiresAt:      expiresAt,
	}, nil
}

func (s *instagramService) getInstagramUserInfo(accessToken string) (*transfer.InstagramUserInfo, error) {
	var userInfo transfer.InstagramUserInfo

	reqURL := fmt.Sprintf(
		"https://graph.instagram.com/me?fields=id,username,name,account_type,profile_picture_url&access_token=%s",
		accessToken,
	)

	resp, err := s.client.Get(reqURL)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(&userInfo); err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	return &userInfo, nil
}

func (s *instagramService) RefreshInstagramToken(ctx context.Context, conn *models.Connection) error {
	decryptedToken, err := utils.Decrypt(conn.AccessToken, []byte(s.cfg.SecretKey))
	if err != nil {
		return err
	}

	reqURL := fmt.Sprintf(
		"https://graph.instagram.com/refresh_access_token?grant_type=ig_refresh_token&access_token=%s",
		decryptedToken,
	)

	resp, err := s.client.Get(reqURL)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var result struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return err
	}

	expiresAt := time.Now().Add(time.Second * time.Duration(result.ExpiresIn))

	encryptedAccessToken, err := utils.Encrypt([]byte(result.AccessToken), []byte(s.cfg.SecretKey))
	if err != nil {
		return err
	}

	return s.cr.SetToken(ctx, conn.UserID, encryptedAccessToken, expiresAt)
}
