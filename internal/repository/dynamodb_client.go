package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/LiquidSpot/TwitchAI-sub001/internal/domain"
)

const (
	skSettings  = "SETTINGS#"
	skPrefixMsg = "MSG#"
	skMeta      = "META#"
	ttlDuration = 30 * 24 * time.Hour // 30-day TTL on archived turns
)

// dynamodbAPI is the minimal DynamoDB interface required by Client.
// Defined here for testability.
type dynamodbAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	TransactWriteItems(ctx context.Context, in *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
}

// Client wraps a single DynamoDB table holding per-user AI settings and
// archived conversation turns. It satisfies usecase.SettingsStore and
// usecase.TurnArchiver.
type Client struct {
	api       dynamodbAPI
	tableName string
}

// New creates a new repository Client.
func New(api dynamodbAPI, tableName string) (*Client, error) {
	if api == nil {
		return nil, errors.New("repository: api must not be nil")
	}
	if strings.TrimSpace(tableName) == "" {
		return nil, errors.New("repository: table name must not be empty")
	}
	return &Client{api: api, tableName: tableName}, nil
}

// userPK returns the partition key for a user's settings record.
func userPK(userID string) string {
	return "USER#" + userID
}

// convPK returns the partition key for a conversation archive.
func convPK(conversationID string) string {
	return "CONV#" + conversationID
}

// msgSK returns the sort key for an archived turn using the current UTC timestamp.
func msgSK(ts time.Time) string {
	return skPrefixMsg + ts.UTC().Format(time.RFC3339Nano)
}

// ttlValue returns a Unix timestamp 30 days in the future.
func ttlValue() int64 {
	return time.Now().Add(ttlDuration).Unix()
}

// GetSettings loads a user's AI settings. The second return is false when
// the user has no stored record yet.
func (c *Client) GetSettings(ctx context.Context, userID string) (domain.UserAiSettings, bool, error) {
	if strings.TrimSpace(userID) == "" {
		return domain.UserAiSettings{}, false, errors.New("repository: GetSettings: user id is required")
	}

	out, err := c.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(c.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: userPK(userID)},
			"SK": &types.AttributeValueMemberS{Value: skSettings},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return domain.UserAiSettings{}, false, fmt.Errorf("repository: GetSettings get item: %w", err)
	}
	if out == nil || len(out.Item) == 0 {
		return domain.UserAiSettings{}, false, nil
	}

	settings, err := itemToSettings(out.Item)
	if err != nil {
		return domain.UserAiSettings{}, false, fmt.Errorf("repository: GetSettings decode: %w", err)
	}
	return settings, true, nil
}

// PutSettings writes or replaces a user's AI settings record.
func (c *Client) PutSettings(ctx context.Context, settings domain.UserAiSettings) error {
	if strings.TrimSpace(settings.UserID) == "" {
		return errors.New("repository: PutSettings: user id is required")
	}

	_, err := c.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(c.tableName),
		Item:      settingsItem(settings),
	})
	if err != nil {
		return fmt.Errorf("repository: PutSettings: %w", err)
	}
	return nil
}

// ArchiveTurn writes the completed turn and the updated conversation
// metadata in one transaction, so the archive never shows a turn without
// its count or vice versa.
func (c *Client) ArchiveTurn(ctx context.Context, userID, conversationID, question, answer string, turns int) error {
	if strings.TrimSpace(conversationID) == "" {
		return errors.New("repository: ArchiveTurn: conversation id is required")
	}

	turn := newArchivedTurn(userID, conversationID, question, answer, turns)
	_, err := c.api.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{
				Put: &types.Put{
					TableName:           aws.String(c.tableName),
					Item:                turnItem(turn),
					ConditionExpression: aws.String("attribute_not_exists(PK) AND attribute_not_exists(SK)"),
				},
			},
			{
				Put: &types.Put{
					TableName: aws.String(c.tableName),
					Item:      metaItem(conversationID, userID, turns),
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("repository: ArchiveTurn: %w", err)
	}
	return nil
}

// newArchivedTurn constructs an ArchivedTurn with PK/SK/TTL set from
// conversationID and current time.
func newArchivedTurn(userID, conversationID, question, answer string, turns int) domain.ArchivedTurn {
	return domain.ArchivedTurn{
		PK:             convPK(conversationID),
		SK:             msgSK(time.Now()),
		UserID:         userID,
		ConversationID: conversationID,
		Question:       question,
		Answer:         answer,
		Turns:          turns,
		TTL:            ttlValue(),
	}
}

func settingsItem(s domain.UserAiSettings) map[string]types.AttributeValue {
	item := map[string]types.AttributeValue{
		"PK":          &types.AttributeValueMemberS{Value: userPK(s.UserID)},
		"SK":          &types.AttributeValueMemberS{Value: skSettings},
		"userId":      &types.AttributeValueMemberS{Value: s.UserID},
		"role":        &types.AttributeValueMemberS{Value: s.Role},
		"engine":      &types.AttributeValueMemberS{Value: s.Engine},
		"replyLimit":  &types.AttributeValueMemberN{Value: strconv.Itoa(s.ReplyLimit)},
		"temperature": &types.AttributeValueMemberN{Value: strconv.FormatFloat(s.Temperature, 'f', -1, 64)},
		"maxTokens":   &types.AttributeValueMemberN{Value: strconv.Itoa(s.MaxTokens)},
	}
	disabled := disabledList(s.Disabled)
	if len(disabled) > 0 {
		item["disabled"] = &types.AttributeValueMemberSS{Value: disabled}
	}
	return item
}

// disabledList flattens the disabled-feature map to the names that are
// actually switched off, sorted for a stable item shape.
func disabledList(disabled map[domain.Feature]bool) []string {
	var names []string
	for f, off := range disabled {
		if off {
			names = append(names, string(f))
		}
	}
	sort.Strings(names)
	return names
}

func itemToSettings(item map[string]types.AttributeValue) (domain.UserAiSettings, error) {
	userID, err := strAttr(item, "userId")
	if err != nil {
		return domain.UserAiSettings{}, err
	}
	role, err := strAttr(item, "role")
	if err != nil {
		return domain.UserAiSettings{}, err
	}
	engine, err := strAttr(item, "engine")
	if err != nil {
		return domain.UserAiSettings{}, err
	}
	replyLimit, err := intAttr(item, "replyLimit")
	if err != nil {
		return domain.UserAiSettings{}, err
	}
	temperature, err := floatAttr(item, "temperature")
	if err != nil {
		return domain.UserAiSettings{}, err
	}
	maxTokens, err := intAttr(item, "maxTokens")
	if err != nil {
		return domain.UserAiSettings{}, err
	}

	settings := domain.UserAiSettings{
		UserID:      userID,
		Role:        role,
		Engine:      engine,
		ReplyLimit:  replyLimit,
		Temperature: temperature,
		MaxTokens:   maxTokens,
	}
	if v, ok := item["disabled"]; ok {
		ss, ok := v.(*types.AttributeValueMemberSS)
		if !ok {
			return domain.UserAiSettings{}, errors.New(`repository: attribute "disabled" is not a string set`)
		}
		settings.Disabled = map[domain.Feature]bool{}
		for _, name := range ss.Value {
			settings.Disabled[domain.Feature(name)] = true
		}
	}
	return settings, nil
}

func turnItem(turn domain.ArchivedTurn) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK":             &types.AttributeValueMemberS{Value: turn.PK},
		"SK":             &types.AttributeValueMemberS{Value: turn.SK},
		"userId":         &types.AttributeValueMemberS{Value: turn.UserID},
		"conversationId": &types.AttributeValueMemberS{Value: turn.ConversationID},
		"question":       &types.AttributeValueMemberS{Value: turn.Question},
		"answer":         &types.AttributeValueMemberS{Value: turn.Answer},
		"turns":          &types.AttributeValueMemberN{Value: strconv.Itoa(turn.Turns)},
		"ttl":            &types.AttributeValueMemberN{Value: strconv.FormatInt(turn.TTL, 10)},
	}
}

func metaItem(conversationID, userID string, turns int) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK":             &types.AttributeValueMemberS{Value: convPK(conversationID)},
		"SK":             &types.AttributeValueMemberS{Value: skMeta},
		"conversationId": &types.AttributeValueMemberS{Value: conversationID},
		"userId":         &types.AttributeValueMemberS{Value: userID},
		"lastActivity":   &types.AttributeValueMemberS{Value: time.Now().UTC().Format(time.RFC3339)},
		"turns":          &types.AttributeValueMemberN{Value: strconv.Itoa(turns)},
		"ttl":            &types.AttributeValueMemberN{Value: strconv.FormatInt(ttlValue(), 10)},
	}
}

func strAttr(item map[string]types.AttributeValue, key string) (string, error) {
	v, ok := item[key]
	if !ok {
		return "", fmt.Errorf("repository: missing attribute %q", key)
	}
	s, ok := v.(*types.AttributeValueMemberS)
	if !ok {
		return "", fmt.Errorf("repository: attribute %q is not a string", key)
	}
	return s.Value, nil
}

func intAttr(item map[string]types.AttributeValue, key string) (int, error) {
	v, ok := item[key]
	if !ok {
		return 0, fmt.Errorf("repository: missing attribute %q", key)
	}
	n, ok := v.(*types.AttributeValueMemberN)
	if !ok {
		return 0, fmt.Errorf("repository: attribute %q is not a number", key)
	}
	parsed, err := strconv.Atoi(n.Value)
	if err != nil {
		return 0, fmt.Errorf("repository: parse attribute %q: %w", key, err)
	}
	return parsed, nil
}

func floatAttr(item map[string]types.AttributeValue, key string) (float64, error) {
	v, ok := item[key]
	if !ok {
		return 0, fmt.Errorf("repository: missing attribute %q", key)
	}
	n, ok := v.(*types.AttributeValueMemberN)
	if !ok {
		return 0, fmt.Errorf("repository: attribute %q is not a number", key)
	}
	parsed, err := strconv.ParseFloat(n.Value, 64)
	if err != nil {
		return 0, fmt.Errorf("repository: parse attribute %q: %w", key, err)
	}
	return parsed, nil
}
