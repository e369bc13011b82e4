package table

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"authkeeper/internal/common"
	"authkeeper/internal/logging"
)

// DynamoTable implements Table on top of a DynamoDB table whose partition
// key is Settings.PartitionKey() and whose sort key is createTime.
type DynamoTable struct {
	client   *dynamodb.Client
	settings Settings
	log      logging.Logger
}

func NewDynamoTable(client *dynamodb.Client, settings Settings, log logging.Logger) *DynamoTable {
	return &DynamoTable{client: client, settings: settings, log: log.With("table", settings.Name)}
}

func (t *DynamoTable) Query(ctx context.Context, keyConditionExpression string, values map[string]any) ([]Item, error) {
	eav, err := attributevalue.MarshalMap(values)
	if err != nil {
		return nil, fmt.Errorf("marshalling key values: %w", err)
	}

	out, err := t.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(t.settings.Name),
		KeyConditionExpression:    aws.String(keyConditionExpression),
		ExpressionAttributeValues: eav,
	})
	if err != nil {
		return nil, fmt.Errorf("querying table: %w", err)
	}

	items := make([]Item, 0, len(out.Items))
	for _, raw := range out.Items {
		var item Item
		if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
			return nil, fmt.Errorf("unmarshalling item: %w", err)
		}
		items = append(items, item)
	}
	return items, nil
}

func (t *DynamoTable) Put(ctx context.Context, item Item) (Item, error) {
	stored := t.settings.applyWriteDefaults(item)

	av, err := attributevalue.MarshalMap(stored)
	if err != nil {
		return nil, common.PutFailedError(err)
	}

	if _, err := t.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(t.settings.Name),
		Item:      av,
	}); err != nil {
		return nil, common.PutFailedError(err)
	}
	return stored, nil
}

func (t *DynamoTable) Delete(ctx context.Context, key Item) error {
	av, err := attributevalue.MarshalMap(key)
	if err != nil {
		return common.DeleteFailedError(err)
	}

	if _, err := t.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(t.settings.Name),
		Key:       av,
	}); err != nil {
		return common.DeleteFailedError(err)
	}
	return nil
}
