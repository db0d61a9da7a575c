// Package es 提供了与 Elasticsearch 交互的客户端功能。
package es

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"launchgpt-go/internal/config"
	"launchgpt-go/internal/model"
	"launchgpt-go/pkg/log"
)

// MaxSearchSize 是单次搜索返回的最大条数。
const MaxSearchSize = 20

const chatMapping = `{
	"mappings": {
		"properties": {
			"chat_id":    { "type": "long" },
			"user_id":    { "type": "long" },
			"prompt":     { "type": "text" },
			"content":    { "type": "text" },
			"structured": { "type": "boolean" },
			"created_at": { "type": "date" }
		}
	}
}`

// NewClient 初始化 Elasticsearch 客户端
func NewClient(esCfg config.ElasticsearchConfig) (*elasticsearch.Client, error) {
	return elasticsearch.NewClient(elasticsearch.Config{
		Addresses: esCfg.AddressList(),
		Username:  esCfg.Username,
		Password:  esCfg.Password,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		},
	})
}

// ChatIndex 封装聊天记录索引的读写。
type ChatIndex struct {
	client *elasticsearch.Client
	name   string
}

// NewChatIndex 创建 ChatIndex。
func NewChatIndex(client *elasticsearch.Client, name string) *ChatIndex {
	return &ChatIndex{client: client, name: name}
}

// EnsureIndex 检查索引是否存在，如果不存在则创建它
func (x *ChatIndex) EnsureIndex(ctx context.Context) error {
	res, err := x.client.Indices.Exists([]string{x.name}, x.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("检查索引是否存在时出错: %w", err)
	}
	res.Body.Close()
	if res.StatusCode == http.StatusOK {
		log.Infof("索引 '%s' 已存在", x.name)
		return nil
	}
	if res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("检查索引是否存在时收到意外的状态码: %d", res.StatusCode)
	}

	res, err = x.client.Indices.Create(x.name,
		x.client.Indices.Create.WithContext(ctx),
		x.client.Indices.Create.WithBody(strings.NewReader(chatMapping)),
	)
	if err != nil {
		return fmt.Errorf("创建索引 '%s' 失败: %w", x.name, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("创建索引时 Elasticsearch 返回错误: %s", res.String())
	}
	log.Infof("索引 '%s' 创建成功", x.name)
	return nil
}

// IndexChat 索引一条聊天记录，文档 ID 为聊天记录 ID。
func (x *ChatIndex) IndexChat(ctx context.Context, doc model.ChatDocument) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	req := esapi.IndexRequest{
		Index:      x.name,
		DocumentID: strconv.FormatUint(uint64(doc.ChatID), 10),
		Body:       bytes.NewReader(body),
		Refresh:    "true",
	}
	res, err := req.Do(ctx, x.client)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("索引文档到 Elasticsearch 出错: %s", res.String())
	}
	return nil
}

// DeleteUserChats 删除某个用户的全部文档。
func (x *ChatIndex) DeleteUserChats(ctx context.Context, userID uint) error {
	query := map[string]interface{}{
		"query": map[string]interface{}{
			"term": map[string]interface{}{"user_id": userID},
		},
	}
	body, err := json.Marshal(query)
	if err != nil {
		return err
	}
	res, err := x.client.DeleteByQuery([]string{x.name}, bytes.NewReader(body),
		x.client.DeleteByQuery.WithContext(ctx),
		x.client.DeleteByQuery.WithRefresh(true),
		x.client.DeleteByQuery.WithConflicts("proceed"),
	)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("按用户删除文档出错: %s", res.String())
	}
	return nil
}

// SearchQuery 构建按用户过滤的全文检索请求体。
func SearchQuery(userID uint, text string, size int) map[string]interface{} {
	if size <= 0 || size > MaxSearchSize {
		size = MaxSearchSize
	}
	return map[string]interface{}{
		"size": size,
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"must": map[string]interface{}{
					"multi_match": map[string]interface{}{
						"query":  text,
						"fields": []string{"prompt^2", "content"},
					},
				},
				"filter": map[string]interface{}{
					"term": map[string]interface{}{"user_id": userID},
				},
			},
		},
		"sort": []interface{}{
			"_score",
			map[string]interface{}{"created_at": map[string]string{"order": "desc"}},
		},
		"highlight": map[string]interface{}{
			"fields": map[string]interface{}{"content": map[string]interface{}{"fragment_size": 160, "number_of_fragments": 1}},
		},
	}
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			Score     float64             `json:"_score"`
			Source    model.ChatDocument  `json:"_source"`
			Highlight map[string][]string `json:"highlight"`
		} `json:"hits"`
	} `json:"hits"`
}

// SearchChats 在用户自己的聊天记录中检索。
func (x *ChatIndex) SearchChats(ctx context.Context, userID uint, text string, size int) ([]model.SearchHit, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(SearchQuery(userID, text, size)); err != nil {
		return nil, err
	}
	res, err := x.client.Search(
		x.client.Search.WithContext(ctx),
		x.client.Search.WithIndex(x.name),
		x.client.Search.WithBody(&buf),
	)
	if err != nil {
		return nil, fmt.Errorf("向 Elasticsearch 发送搜索请求失败: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		b, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("elasticsearch 返回错误, status: %s, body: %s", res.Status(), string(b))
	}

	var parsed searchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("解析 Elasticsearch 响应失败: %w", err)
	}
	hits := make([]model.SearchHit, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		// 过滤器之外再校验一次所有者
		if h.Source.UserID != userID {
			continue
		}
		snippet := h.Source.Content
		if frags := h.Highlight["content"]; len(frags) > 0 {
			snippet = frags[0]
		} else if r := []rune(snippet); len(r) > 160 {
			snippet = string(r[:160])
		}
		hits = append(hits, model.SearchHit{
			ChatID:    h.Source.ChatID,
			Prompt:    h.Source.Prompt,
			Snippet:   snippet,
			Score:     h.Score,
			CreatedAt: h.Source.CreatedAt,
		})
	}
	return hits, nil
}
