package dynamo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/geeta-saathi/backend/internal/domain"
)

// API is the subset of the DynamoDB client used by the repositories.
type API interface {
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// CodeRepo stores issued one-time codes.
// PK: phone_number. expires_at is the table TTL attribute.
type CodeRepo struct {
	client    API
	tableName string
	now       func() time.Time
}

func NewCodeRepo(client API, tableName string) *CodeRepo {
	return &CodeRepo{client: client, tableName: tableName, now: time.Now}
}

// Put replaces any code already held for the phone number.
func (r *CodeRepo) Put(ctx context.Context, c *domain.OneTimeCode) error {
	item, err := attributevalue.MarshalMap(c)
	if err != nil {
		return fmt.Errorf("marshal otp code: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

// Take deletes the item for phone and returns its previous contents. The
// condition makes DynamoDB pick a single winner among concurrent callers.
// DynamoDB reaps TTL items lazily, so an expired item is reported as not found.
func (r *CodeRepo) Take(ctx context.Context, phone string) (*domain.OneTimeCode, error) {
	out, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 strKey(fieldPhoneNumber, phone),
		ConditionExpression: aws.String("attribute_exists(" + fieldPhoneNumber + ")"),
		ReturnValues:        types.ReturnValueAllOld,
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return nil, fmt.Errorf("otp code not found: %w", domain.ErrNotFound)
		}
		return nil, err
	}
	if len(out.Attributes) == 0 {
		return nil, fmt.Errorf("otp code not found: %w", domain.ErrNotFound)
	}
	var c domain.OneTimeCode
	if err := attributevalue.UnmarshalMap(out.Attributes, &c); err != nil {
		return nil, err
	}
	if c.Expired(r.now()) {
		return nil, fmt.Errorf("otp code expired: %w", domain.ErrNotFound)
	}
	return &c, nil
}

// Restore writes a taken code back unless a newer one was issued meanwhile.
func (r *CodeRepo) Restore(ctx context.Context, c *domain.OneTimeCode) error {
	if c.Expired(r.now()) {
		return nil
	}
	item, err := attributevalue.MarshalMap(c)
	if err != nil {
		return fmt.Errorf("marshal otp code: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(" + fieldPhoneNumber + ")"),
	})
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return nil
	}
	return err
}
