package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/kerri-knier/blog/internal/core/domain"
	"github.com/kerri-knier/blog/internal/core/ports"
)

// MonthIndex est l'index secondaire global (month, created) de la table.
const MonthIndex = "month-index"

// DynamoAPI est le sous-ensemble du client DynamoDB utilisé ici (remplaçable en test).
type DynamoAPI interface {
	DescribeTable(ctx context.Context, in *dynamodb.DescribeTableInput, opts ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
	CreateTable(ctx context.Context, in *dynamodb.CreateTableInput, opts ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, opts ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// DTO interne : le domaine ne porte pas de tags de sérialisation.
type dynamoItem struct {
	ID      string `dynamodbav:"id"`
	Created string `dynamodbav:"created"`
	Month   string `dynamodbav:"month"`
	Text    string `dynamodbav:"text"`
}

type DynamoBackend struct {
	client DynamoAPI
}

func NewDynamoBackend(client DynamoAPI) *DynamoBackend {
	return &DynamoBackend{client: client}
}

func (b *DynamoBackend) Load(ctx context.Context, name string) (ports.Table, error) {
	out, err := b.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(name)})
	if err != nil {
		return nil, translateDynamoErr(err, "load")
	}
	if out.Table == nil {
		return nil, domain.NewError(domain.KindStoreUnavailable, "collection %q does not exist", name)
	}
	switch out.Table.TableStatus {
	case types.TableStatusActive, types.TableStatusUpdating:
	default:
		return nil, domain.NewError(domain.KindStoreUnavailable, "collection %q is %s", name, out.Table.TableStatus)
	}
	return &DynamoTable{client: b.client, name: name}, nil
}

// Provision crée la table (clé id) et l'index month-index, puis attend qu'elle soit active.
func (b *DynamoBackend) Provision(ctx context.Context, name string) error {
	_, err := b.client.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName:   aws.String(name),
		BillingMode: types.BillingModePayPerRequest,
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String("id"), AttributeType: types.ScalarAttributeTypeS},
			{AttributeName: aws.String("month"), AttributeType: types.ScalarAttributeTypeS},
			{AttributeName: aws.String("created"), AttributeType: types.ScalarAttributeTypeS},
		},
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String("id"), KeyType: types.KeyTypeHash},
		},
		GlobalSecondaryIndexes: []types.GlobalSecondaryIndex{{
			IndexName: aws.String(MonthIndex),
			KeySchema: []types.KeySchemaElement{
				{AttributeName: aws.String("month"), KeyType: types.KeyTypeHash},
				{AttributeName: aws.String("created"), KeyType: types.KeyTypeRange},
			},
			Projection: &types.Projection{ProjectionType: types.ProjectionTypeAll},
		}},
	})
	var inUse *types.ResourceInUseException
	if err != nil && !errors.As(err, &inUse) {
		return fmt.Errorf("provision %s: %w", name, err)
	}

	waiter := dynamodb.NewTableExistsWaiter(b.client)
	if err := waiter.Wait(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(name)}, 2*time.Minute); err != nil {
		return fmt.Errorf("wait for %s: %w", name, err)
	}
	return nil
}

type DynamoTable struct {
	client DynamoAPI
	name   string
}

func (r *DynamoTable) Put(ctx context.Context, post *domain.Post) error {
	item, err := attributevalue.MarshalMap(toDynamoItem(post))
	if err != nil {
		return unavailable(err, "marshal")
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.name),
		Item:      item,
		// Un id n'est jamais réutilisé
		ConditionExpression: aws.String("attribute_not_exists(id)"),
	})
	if err != nil {
		return translateDynamoErr(err, "put")
	}
	return nil
}

func (r *DynamoTable) Get(ctx context.Context, id string) (*domain.Post, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.name),
		Key:            idKey(id),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, translateDynamoErr(err, "get")
	}
	if len(out.Item) == 0 {
		return nil, notFound(id)
	}
	return fromDynamoItem(out.Item)
}

// QueryMonth lit toute la partition via l'index (pages suivies jusqu'au bout).
// L'index est à cohérence éventuelle : un post très récent peut manquer, jamais être dupliqué.
func (r *DynamoTable) QueryMonth(ctx context.Context, month string) ([]*domain.Post, error) {
	input := &dynamodb.QueryInput{
		TableName:                aws.String(r.name),
		IndexName:                aws.String(MonthIndex),
		KeyConditionExpression:   aws.String("#m = :m"),
		ExpressionAttributeNames: map[string]string{"#m": "month"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":m": &types.AttributeValueMemberS{Value: month},
		},
	}

	posts := []*domain.Post{}
	for {
		out, err := r.client.Query(ctx, input)
		if err != nil {
			return nil, translateDynamoErr(err, "query month")
		}
		for _, item := range out.Items {
			p, err := fromDynamoItem(item)
			if err != nil {
				return nil, err
			}
			posts = append(posts, p)
		}
		if len(out.LastEvaluatedKey) == 0 {
			return posts, nil
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}
}

func (r *DynamoTable) Delete(ctx context.Context, id string) (*domain.Post, error) {
	out, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:    aws.String(r.name),
		Key:          idKey(id),
		ReturnValues: types.ReturnValueAllOld,
	})
	if err != nil {
		return nil, translateDynamoErr(err, "delete")
	}
	if len(out.Attributes) == 0 {
		return nil, notFound(id)
	}
	return fromDynamoItem(out.Attributes)
}

func idKey(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{"id": &types.AttributeValueMemberS{Value: id}}
}

func toDynamoItem(p *domain.Post) dynamoItem {
	return dynamoItem{
		ID:      p.ID,
		Created: p.Created.UTC().Format(time.RFC3339Nano),
		Month:   p.Month,
		Text:    p.Text,
	}
}

func fromDynamoItem(item map[string]types.AttributeValue) (*domain.Post, error) {
	var it dynamoItem
	if err := attributevalue.UnmarshalMap(item, &it); err != nil {
		return nil, unavailable(err, "unmarshal")
	}
	created, err := time.Parse(time.RFC3339Nano, it.Created)
	if err != nil {
		return nil, unavailable(err, "parse created")
	}
	return &domain.Post{ID: it.ID, Created: created.UTC(), Month: it.Month, Text: it.Text}, nil
}

// translateDynamoErr traduit les erreurs AWS en erreurs du domaine.
func translateDynamoErr(err error, op string) error {
	var rnf *types.ResourceNotFoundException
	if errors.As(err, &rnf) {
		return domain.Wrap(domain.KindStoreUnavailable, err, "collection does not exist")
	}
	var throttled *types.ProvisionedThroughputExceededException
	if errors.As(err, &throttled) {
		return domain.Wrap(domain.KindStoreUnavailable, err, "%s throttled", op)
	}
	return unavailable(err, op)
}
