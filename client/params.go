package client

import (
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
)

func setUUID(v url.Values, key string, id *uuid.UUID) {
	if id != nil {
		v.Set(key, id.String())
	}
}

func setTime(v url.Values, key string, t *time.Time) {
	if t != nil {
		v.Set(key, t.UTC().Format(time.RFC3339Nano))
	}
}

func setList(v url.Values, key string, items []string) {
	for _, s := range items {
		v.Add(key, s)
	}
}

func (o *ListOptions) values() url.Values {
	v := url.Values{}
	if o == nil {
		return v
	}

	setUUID(v, "project_id", o.ProjectID)
	setUUID(v, "actor_id", o.ActorID)
	setTime(v, "start_date", o.StartDate)
	setTime(v, "end_date", o.EndDate)

	if o.Search != "" {
		v.Set("search", o.Search)
	}

	if o.OrderBy != "" {
		v.Set("order_by", o.OrderBy)
	}

	if o.OrderDirection != "" {
		v.Set("order_direction", o.OrderDirection)
	}

	if o.Limit > 0 {
		v.Set("limit", strconv.Itoa(o.Limit))
	}

	if o.Offset > 0 {
		v.Set("offset", strconv.Itoa(o.Offset))
	}

	return v
}

func (o *WorkItemListOptions) values() url.Values {
	if o == nil {
		return url.Values{}
	}

	v := o.ListOptions.values()
	setList(v, "status", o.Statuses)
	setUUID(v, "created_by", o.CreatedBy)

	if o.IncludeDeleted {
		v.Set("include_deleted", "true")
	}

	return v
}

func (o *AuditQueryOptions) values() url.Values {
	if o == nil {
		return url.Values{}
	}

	v := o.ListOptions.values()
	setList(v, "entity_type", o.EntityTypes)
	setList(v, "action", o.Actions)
	setList(v, "severity", o.Severities)

	if o.EntityID != "" {
		v.Set("entity_id", o.EntityID)
	}

	return v
}

func (o *ActivityQueryOptions) values() url.Values {
	if o == nil {
		return url.Values{}
	}

	v := o.ListOptions.values()
	setList(v, "entity_type", o.EntityTypes)
	setList(v, "activity_type", o.ActivityTypes)
	setList(v, "tag", o.Tags)

	if o.EntityID != "" {
		v.Set("entity_id", o.EntityID)
	}

	return v
}

func (o *StatsOptions) values() url.Values {
	v := url.Values{}
	if o == nil {
		return v
	}

	setUUID(v, "project_id", o.ProjectID)
	setUUID(v, "actor_id", o.ActorID)
	setList(v, "entity_type", o.EntityTypes)
	setTime(v, "start_date", o.StartDate)
	setTime(v, "end_date", o.EndDate)

	if o.Days > 0 {
		v.Set("days", strconv.Itoa(o.Days))
	}

	return v
}
