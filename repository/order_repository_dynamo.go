package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	awspkg "github.com/yashrajoria/storefront-backend/pkg/aws"
	"github.com/yashrajoria/storefront-backend/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"github.com/shopspring/decimal"
)

// CustomerEmailIndex is the GSI (customer_email HASH, created_at RANGE) used to list a customer's orders.
const CustomerEmailIndex = "customer_email-created_at-index"

// Fixed-width UTC layout so created_at sorts lexicographically in the index.
const ddbTimeLayout = "2006-01-02T15:04:05.000000000Z"

// DynamoOrderRepository stores one item per checkout session in a table keyed
// by source_session_id. Inserts are conditional on the key being absent.
type DynamoOrderRepository struct {
	client awspkg.DynamoDBAPI
	table  string
}

func NewDynamoOrderRepository(client awspkg.DynamoDBAPI, table string) *DynamoOrderRepository {
	return &DynamoOrderRepository{client: client, table: table}
}

type ddbLineItem struct {
	Title     string `dynamodbav:"title"`
	UnitPrice string `dynamodbav:"unit_price"`
	Quantity  int64  `dynamodbav:"quantity"`
	ImageURL  string `dynamodbav:"image_url,omitempty"`
}

type ddbOrder struct {
	SourceSessionID string        `dynamodbav:"source_session_id"`
	OrderID         string        `dynamodbav:"order_id"`
	CustomerEmail   string        `dynamodbav:"customer_email"`
	LineItems       []ddbLineItem `dynamodbav:"line_items"`
	TotalAmount     string        `dynamodbav:"total_amount"`
	Currency        string        `dynamodbav:"currency"`
	PaymentStatus   string        `dynamodbav:"payment_status"`
	SourceEventID   string        `dynamodbav:"source_event_id,omitempty"`
	CreatedAt       string        `dynamodbav:"created_at"`
}

func toDDBOrder(o *models.Order) ddbOrder {
	items := make([]ddbLineItem, 0, len(o.LineItems))
	for _, li := range o.LineItems {
		items = append(items, ddbLineItem{
			Title:     li.Title,
			UnitPrice: li.UnitPrice.String(),
			Quantity:  li.Quantity,
			ImageURL:  li.ImageURL,
		})
	}
	return ddbOrder{
		SourceSessionID: o.SourceSessionID,
		OrderID:         o.ID,
		CustomerEmail:   o.CustomerEmail,
		LineItems:       items,
		TotalAmount:     o.TotalAmount.String(),
		Currency:        o.Currency,
		PaymentStatus:   o.PaymentStatus,
		SourceEventID:   o.SourceEventID,
		CreatedAt:       o.CreatedAt.UTC().Format(ddbTimeLayout),
	}
}

func (d ddbOrder) toModel() (*models.Order, error) {
	total, err := decimal.NewFromString(d.TotalAmount)
	if err != nil {
		return nil, fmt.Errorf("order %s: bad total_amount: %w", d.OrderID, err)
	}
	createdAt, err := time.Parse(ddbTimeLayout, d.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("order %s: bad created_at: %w", d.OrderID, err)
	}

	items := make([]models.OrderLineItem, 0, len(d.LineItems))
	for _, li := range d.LineItems {
		price, err := decimal.NewFromString(li.UnitPrice)
		if err != nil {
			return nil, fmt.Errorf("order %s: bad unit_price: %w", d.OrderID, err)
		}
		items = append(items, models.OrderLineItem{
			Title:     li.Title,
			UnitPrice: price,
			Quantity:  li.Quantity,
			ImageURL:  li.ImageURL,
		})
	}

	return &models.Order{
		ID:              d.OrderID,
		CustomerEmail:   d.CustomerEmail,
		LineItems:       items,
		TotalAmount:     total,
		Currency:        d.Currency,
		PaymentStatus:   d.PaymentStatus,
		SourceSessionID: d.SourceSessionID,
		SourceEventID:   d.SourceEventID,
		CreatedAt:       createdAt,
	}, nil
}

func (r *DynamoOrderRepository) InsertIfAbsent(ctx context.Context, order *models.Order) (bool, error) {
	item, err := attributevalue.MarshalMap(toDDBOrder(order))
	if err != nil {
		return false, fmt.Errorf("marshal order: %w", err)
	}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.table),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(source_session_id)"),
	})
	if err != nil {
		if isConditionalCheckFailed(err) {
			return false, nil
		}
		return false, fmt.Errorf("dynamodb PutItem failed: %w", err)
	}
	return true, nil
}

func (r *DynamoOrderRepository) FindBySessionID(ctx context.Context, sessionID string) (*models.Order, error) {
	key, err := attributevalue.MarshalMap(map[string]string{"source_session_id": sessionID})
	if err != nil {
		return nil, fmt.Errorf("marshal key: %w", err)
	}

	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.table),
		Key:            key,
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("dynamodb GetItem failed: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, ErrNotFound
	}

	var rec ddbOrder
	if err := attributevalue.UnmarshalMap(out.Item, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal item: %w", err)
	}
	return rec.toModel()
}

func (r *DynamoOrderRepository) FindByCustomerEmail(ctx context.Context, email string) ([]models.Order, error) {
	orders := []models.Order{}

	var startKey map[string]types.AttributeValue
	for {
		out, err := r.client.Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(r.table),
			IndexName:              aws.String(CustomerEmailIndex),
			KeyConditionExpression: aws.String("customer_email = :email"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":email": &types.AttributeValueMemberS{Value: email},
			},
			ScanIndexForward:  aws.Bool(false),
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, fmt.Errorf("dynamodb Query failed: %w", err)
		}

		var recs []ddbOrder
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &recs); err != nil {
			return nil, fmt.Errorf("unmarshal items: %w", err)
		}
		for _, rec := range recs {
			o, err := rec.toModel()
			if err != nil {
				return nil, err
			}
			orders = append(orders, *o)
		}

		if len(out.LastEvaluatedKey) == 0 {
			return orders, nil
		}
		startKey = out.LastEvaluatedKey
	}
}

// EnsureIndexes is a no-op: the table and its GSI are provisioned with the infrastructure.
func (r *DynamoOrderRepository) EnsureIndexes(context.Context) error { return nil }

func isConditionalCheckFailed(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return true
	}
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode() == "ConditionalCheckFailedException"
}
