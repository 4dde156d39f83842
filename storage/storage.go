package storage

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azqueue"
	"github.com/bytedance/sonic"

	"github.com/yu23ki14/Footprint-Jibungoto/domain"
)

type messageQueue interface {
	EnqueueMessage(ctx context.Context, content string, o *azqueue.EnqueueMessageOptions) (azqueue.EnqueueMessagesResponse, error)
}

// Storage reads the action catalog from Azure Table storage and publishes
// completion events to an Azure queue.
type Storage struct {
	actionsTable    *aztables.Client
	completionQueue messageQueue
}

var retryStatusCodes = []int{408, 429, 500, 502, 503, 504}

// New creates a Storage instance from the given connection string. An empty
// queue name disables completion events.
func New(connStr, actionsTable, completionQueue string) (*Storage, error) {
	tablesClientOptions := aztables.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    3,
				TryTimeout:    time.Minute,
				RetryDelay:    time.Second,
				MaxRetryDelay: time.Second * 15,
				StatusCodes:   retryStatusCodes,
			},
		},
	}
	svc, err := aztables.NewServiceClientFromConnectionString(connStr, &tablesClientOptions)
	if err != nil {
		return nil, err
	}
	s := &Storage{actionsTable: svc.NewClient(actionsTable)}
	if completionQueue == "" {
		return s, nil
	}
	queueClientOptions := azqueue.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    5,
				TryTimeout:    time.Minute,
				RetryDelay:    time.Second,
				MaxRetryDelay: time.Second * 30,
				StatusCodes:   retryStatusCodes,
			},
		},
	}
	cq, err := azqueue.NewQueueClientFromConnectionString(connStr, completionQueue, &queueClientOptions)
	if err != nil {
		return nil, err
	}
	s.completionQueue = cq
	return s, nil
}

type actionEntity struct {
	aztables.Entity
	Title       string   `json:"Title"`
	Description string   `json:"Description,omitempty"`
	Order       int      `json:"Order"`
	DefaultRate *float64 `json:"DefaultRate,omitempty"`
	RateUnit    string   `json:"RateUnit,omitempty"`
}

// FetchActions loads every category's actions, ordered by Order then id.
func (s *Storage) FetchActions(ctx context.Context) (domain.Catalog, error) {
	entities, err := s.listActionEntities(ctx)
	if err != nil {
		return nil, err
	}
	return buildCatalog(entities)
}

func (s *Storage) listActionEntities(ctx context.Context) ([]actionEntity, error) {
	pager := s.actionsTable.NewListEntitiesPager(nil)
	var entities []actionEntity
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, raw := range resp.Entities {
			ent, err := decodeActionEntity(raw)
			if err != nil {
				return nil, err
			}
			entities = append(entities, ent)
		}
	}
	return entities, nil
}

// UpsertActions makes the table match the catalog: every action is upserted
// and rows of known categories that the catalog no longer lists are deleted.
// A category missing from the catalog is emptied.
func (s *Storage) UpsertActions(ctx context.Context, catalog domain.Catalog) error {
	for category, actions := range catalog {
		for i, a := range actions {
			payload, err := sonic.Marshal(entityPayload(encodeActionEntity(category, i, a)))
			if err != nil {
				return err
			}
			if _, err := s.actionsTable.UpsertEntity(ctx, payload, nil); err != nil {
				return fmt.Errorf("upsert %s/%d: %w", category, a.ID, err)
			}
		}
	}

	existing, err := s.listActionEntities(ctx)
	if err != nil {
		return fmt.Errorf("list actions: %w", err)
	}
	for _, ent := range staleEntities(existing, catalog) {
		if _, err := s.actionsTable.DeleteEntity(ctx, ent.PartitionKey, ent.RowKey, nil); err != nil {
			return fmt.Errorf("delete %s/%s: %w", ent.PartitionKey, ent.RowKey, err)
		}
	}
	return nil
}

// staleEntities returns the rows of known categories that catalog does not
// list. Partitions outside the category set are left alone.
func staleEntities(existing []actionEntity, catalog domain.Catalog) []actionEntity {
	keep := make(map[string]struct{})
	for category, actions := range catalog {
		for _, a := range actions {
			keep[string(category)+"/"+rowKey(a.ID)] = struct{}{}
		}
	}
	var stale []actionEntity
	for _, ent := range existing {
		if _, ok := domain.ParseCategory(ent.PartitionKey); !ok {
			continue
		}
		if _, ok := keep[ent.PartitionKey+"/"+ent.RowKey]; !ok {
			stale = append(stale, ent)
		}
	}
	return stale
}

// EnqueueCompletion publishes a completion event. It is a no-op when no
// queue is configured.
func (s *Storage) EnqueueCompletion(ctx context.Context, ev domain.CompletionEvent) error {
	if s.completionQueue == nil {
		return nil
	}
	data, err := sonic.Marshal(ev)
	if err != nil {
		return err
	}
	_, err = s.completionQueue.EnqueueMessage(ctx, string(data), nil)
	return err
}

func rowKey(id int) string {
	return fmt.Sprintf("%06d", id)
}

func decodeActionEntity(data []byte) (actionEntity, error) {
	var ent actionEntity
	if err := sonic.Unmarshal(data, &ent); err != nil {
		return actionEntity{}, fmt.Errorf("decode action entity: %w", err)
	}
	return ent, nil
}

func encodeActionEntity(category domain.Category, order int, a domain.Action) actionEntity {
	ent := actionEntity{
		Entity: aztables.Entity{
			PartitionKey: string(category),
			RowKey:       rowKey(a.ID),
		},
		Title:       a.Title,
		Description: a.Description,
		Order:       order,
	}
	if a.IntensityRate != nil {
		ent.DefaultRate = a.IntensityRate.DefaultValue
		ent.RateUnit = a.IntensityRate.Unit
	}
	return ent
}

// entityPayload leaves out the service-managed Timestamp property.
func entityPayload(ent actionEntity) map[string]any {
	payload := map[string]any{
		"PartitionKey": ent.PartitionKey,
		"RowKey":       ent.RowKey,
		"Title":        ent.Title,
		"Order":        ent.Order,
	}
	if ent.Description != "" {
		payload["Description"] = ent.Description
	}
	if ent.DefaultRate != nil {
		payload["DefaultRate"] = *ent.DefaultRate
	}
	if ent.RateUnit != "" {
		payload["RateUnit"] = ent.RateUnit
	}
	return payload
}

// buildCatalog groups entities by category. Rows for unknown categories are
// ignored so a stray partition cannot leak into a page.
func buildCatalog(entities []actionEntity) (domain.Catalog, error) {
	type ordered struct {
		order  int
		action domain.Action
	}
	grouped := map[domain.Category][]ordered{}
	for _, ent := range entities {
		category, ok := domain.ParseCategory(ent.PartitionKey)
		if !ok {
			continue
		}
		id, err := strconv.Atoi(ent.RowKey)
		if err != nil {
			return nil, fmt.Errorf("action %s/%s: invalid row key: %w", ent.PartitionKey, ent.RowKey, err)
		}
		action := domain.Action{ID: id, Title: ent.Title, Description: ent.Description}
		if ent.DefaultRate != nil || ent.RateUnit != "" {
			action.IntensityRate = &domain.IntensityRate{DefaultValue: ent.DefaultRate, Unit: ent.RateUnit}
		}
		grouped[category] = append(grouped[category], ordered{order: ent.Order, action: action})
	}

	catalog := make(domain.Catalog, len(grouped))
	for category, items := range grouped {
		sort.SliceStable(items, func(i, j int) bool {
			if items[i].order != items[j].order {
				return items[i].order < items[j].order
			}
			return items[i].action.ID < items[j].action.ID
		})
		actions := make([]domain.Action, len(items))
		for i := range items {
			actions[i] = items[i].action
		}
		catalog[category] = actions
	}
	return catalog, nil
}
