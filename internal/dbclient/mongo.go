package dbclient

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// mongoConnector implements Connector for MongoDB.
type mongoConnector struct {
	client *mongo.Client
	dbName string

	mu      sync.Mutex
	cursor  *mongo.Cursor
	fetched int
}

// mongoQuery is the JSON form of a MongoDB read.
//
//	{"collection": "employees", "filter": {"status": "active"}, "sort": {"name": 1}}
type mongoQuery struct {
	Collection string         `json:"collection"`
	Operation  string         `json:"operation,omitempty"` // find (default) | aggregate
	Filter     map[string]any `json:"filter,omitempty"`
	Projection map[string]any `json:"projection,omitempty"`
	Sort       map[string]any `json:"sort,omitempty"`
	Limit      int64          `json:"limit,omitempty"`
	Pipeline   []any          `json:"pipeline,omitempty"`
}

// mongoURI builds the connection string and resolves the database name.
// A Host that is already a mongodb:// or mongodb+srv:// URI is used as is.
func mongoURI(cfg ConnConfig) (uri, dbName string) {
	if strings.HasPrefix(cfg.Host, "mongodb+srv://") || strings.HasPrefix(cfg.Host, "mongodb://") {
		uri = cfg.Host
		if cfg.Password != "" {
			uri = strings.ReplaceAll(uri, "<password>", url.QueryEscape(cfg.Password))
			uri = strings.ReplaceAll(uri, "<db_password>", url.QueryEscape(cfg.Password))
		}
	} else {
		port := cfg.Port
		if port == 0 {
			port = 27017
		}
		u := url.URL{Scheme: "mongodb", Host: fmt.Sprintf("%s:%d", cfg.Host, port), Path: "/"}
		if cfg.Username != "" {
			u.User = url.UserPassword(cfg.Username, cfg.Password)
		}
		if len(cfg.Extra) > 0 {
			q := url.Values{}
			for k, v := range cfg.Extra {
				q.Set(k, v)
			}
			u.RawQuery = q.Encode()
		}
		uri = u.String()
	}

	dbName = cfg.Database
	if dbName == "" {
		if u, err := url.Parse(uri); err == nil {
			dbName = strings.Trim(u.Path, "/")
		}
	}
	if dbName == "" {
		dbName = "test"
	}
	return uri, dbName
}

func newMongoConnector(cfg ConnConfig) (*mongoConnector, error) {
	uri, dbName := mongoURI(cfg)

	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	slog.Debug("mongo: client created", "database", dbName)

	return &mongoConnector{client: client, dbName: dbName}, nil
}

// unmarshalEJSON converts Extended JSON values ($oid, $date, ...) to BSON types.
func unmarshalEJSON(field map[string]any) map[string]any {
	if field == nil {
		return nil
	}
	raw, err := json.Marshal(field)
	if err != nil {
		return field
	}
	var doc bson.D
	if err := bson.UnmarshalExtJSON(raw, false, &doc); err != nil {
		slog.Warn("mongo: extended json parse", "err", err)
		return field
	}
	result := make(map[string]any, len(doc))
	for _, elem := range doc {
		result[elem.Key] = elem.Value
	}
	return result
}

func (m *mongoConnector) TestConnection(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return m.client.Ping(ctx, nil)
}

func (m *mongoConnector) Execute(ctx context.Context, query string, fetchSize int) (*QueryPage, error) {
	var mq mongoQuery
	if err := json.Unmarshal([]byte(query), &mq); err != nil {
		return nil, fmt.Errorf("invalid query JSON: %w", err)
	}
	if mq.Collection == "" {
		return nil, fmt.Errorf("query must specify 'collection'")
	}
	mq.Filter = unmarshalEJSON(mq.Filter)
	mq.Projection = unmarshalEJSON(mq.Projection)
	mq.Sort = unmarshalEJSON(mq.Sort)

	m.mu.Lock()
	defer m.mu.Unlock()

	m.closeCursorLocked(ctx)
	if fetchSize <= 0 {
		fetchSize = 50
	}

	coll := m.client.Database(m.dbName).Collection(mq.Collection)

	var (
		cursor *mongo.Cursor
		err    error
	)
	switch mq.Operation {
	case "", "find":
		opts := options.Find().SetBatchSize(int32(fetchSize))
		if mq.Projection != nil {
			opts.SetProjection(mq.Projection)
		}
		if mq.Sort != nil {
			opts.SetSort(mq.Sort)
		}
		if mq.Limit > 0 {
			opts.SetLimit(mq.Limit)
		}
		filter := mq.Filter
		if filter == nil {
			filter = map[string]any{}
		}
		cursor, err = coll.Find(ctx, filter, opts)
	case "aggregate":
		pipeline := mq.Pipeline
		if pipeline == nil {
			pipeline = []any{}
		}
		cursor, err = coll.Aggregate(ctx, pipeline)
	default:
		return nil, fmt.Errorf("unsupported operation %q: %w", mq.Operation, ErrWriteQuery)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", mq.Collection, err)
	}

	m.cursor = cursor
	m.fetched = 0
	return m.fetchBatchLocked(ctx, fetchSize)
}

func (m *mongoConnector) FetchMore(ctx context.Context, fetchSize int) (*QueryPage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cursor == nil {
		return nil, fmt.Errorf("no active cursor: execute a query first")
	}
	if fetchSize <= 0 {
		fetchSize = 50
	}
	return m.fetchBatchLocked(ctx, fetchSize)
}

func (m *mongoConnector) fetchBatchLocked(ctx context.Context, fetchSize int) (*QueryPage, error) {
	var docs []bson.D
	for i := 0; i < fetchSize; i++ {
		if !m.cursor.Next(ctx) {
			break
		}
		var doc bson.D
		if err := m.cursor.Decode(&doc); err != nil {
			m.closeCursorLocked(ctx)
			return nil, fmt.Errorf("decode: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := m.cursor.Err(); err != nil {
		m.closeCursorLocked(ctx)
		return nil, fmt.Errorf("cursor error: %w", err)
	}
	m.fetched += len(docs)

	columns := documentColumns(docs)
	rows := make([][]any, 0, len(docs))
	for _, doc := range docs {
		row := make([]any, len(columns))
		docMap := make(map[string]any, len(doc))
		for _, elem := range doc {
			docMap[elem.Key] = elem.Value
		}
		for j, col := range columns {
			row[j] = bsonScalar(docMap[col])
		}
		rows = append(rows, row)
	}

	hasMore := len(docs) == fetchSize
	if !hasMore {
		m.closeCursorLocked(ctx)
	}

	return &QueryPage{
		Columns:      columns,
		Rows:         rows,
		TotalFetched: m.fetched,
		HasMore:      hasMore,
	}, nil
}

// documentColumns collects field names across docs: _id first, then alphabetical.
func documentColumns(docs []bson.D) []string {
	seen := map[string]bool{}
	var columns []string
	for _, doc := range docs {
		for _, elem := range doc {
			if !seen[elem.Key] {
				seen[elem.Key] = true
				columns = append(columns, elem.Key)
			}
		}
	}
	sort.SliceStable(columns, func(i, j int) bool {
		if columns[i] == "_id" {
			return true
		}
		if columns[j] == "_id" {
			return false
		}
		return columns[i] < columns[j]
	})
	return columns
}

// bsonScalar maps BSON values to the scalar forms grid records hold.
func bsonScalar(v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case string, bool, float64:
		return val
	case int32:
		return float64(val)
	case int64:
		return float64(val)
	case bson.ObjectID:
		return val.Hex()
	case bson.DateTime:
		return val.Time().UTC().Format(time.RFC3339)
	case bson.D, bson.A:
		b, err := bson.MarshalExtJSON(bson.D{{Key: "v", Value: val}}, false, false)
		if err != nil {
			return fmt.Sprint(val)
		}
		var wrapped struct {
			V json.RawMessage `json:"v"`
		}
		if json.Unmarshal(b, &wrapped) != nil {
			return fmt.Sprint(val)
		}
		return string(wrapped.V)
	default:
		return fmt.Sprint(val)
	}
}

func (m *mongoConnector) Introspect(ctx context.Context) (*SchemaInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	db := m.client.Database(m.dbName)
	collections, err := db.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	sort.Strings(collections)

	schema := &SchemaInfo{}
	for _, collName := range collections {
		cursor, err := db.Collection(collName).Find(ctx, bson.M{}, options.Find().SetLimit(1))
		if err != nil {
			schema.Tables = append(schema.Tables, TableInfo{Name: collName})
			continue
		}

		var cols []ColumnInfo
		if cursor.Next(ctx) {
			var doc bson.D
			if cursor.Decode(&doc) == nil {
				for _, elem := range doc {
					cols = append(cols, ColumnInfo{Name: elem.Key, Type: fmt.Sprintf("%T", elem.Value)})
				}
			}
		}
		cursor.Close(ctx)

		schema.Tables = append(schema.Tables, TableInfo{Name: collName, Columns: cols})
	}
	return schema, nil
}

func (m *mongoConnector) Close() error {
	m.mu.Lock()
	m.closeCursorLocked(context.Background())
	m.mu.Unlock()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}

func (m *mongoConnector) closeCursorLocked(ctx context.Context) {
	if m.cursor != nil {
		m.cursor.Close(ctx)
		m.cursor = nil
	}
}
