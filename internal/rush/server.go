package rush

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"skyline/internal/logger"
)

// 入站载荷的边界校验: 字段缺失/类型不对直接拒收,
// 数值字段兼容外部监视器偶尔发来的字符串写法。
const payloadSchema = `{
	"type": "object",
	"required": ["boardName", "takerSide", "volume", "lastPrice", "pairCurrency", "fromUnixTime", "toUnixTime"],
	"properties": {
		"boardName":    {"type": "string", "minLength": 1},
		"takerSide":    {"type": "string", "enum": ["buy", "sell", "Buy", "Sell"]},
		"volume":       {"type": ["number", "string"]},
		"lastPrice":    {"type": ["number", "string"]},
		"pairCurrency": {"type": "string"},
		"fromUnixTime": {"type": ["integer", "string"]},
		"toUnixTime":   {"type": ["integer", "string"]}
	}
}`

// Server 接收动量监视器的推送并入库。
type Server struct {
	addr   string
	board  string
	store  *Store
	schema *jsonschema.Schema
	router *gin.Engine
}

// NewServer 构建入站服务。board 为要保留的看板名, 其余推送直接丢弃。
func NewServer(addr, board string, store *Store) (*Server, error) {
	if store == nil {
		return nil, fmt.Errorf("store 不能为空")
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("payload.json", strings.NewReader(payloadSchema)); err != nil {
		return nil, err
	}
	schema, err := compiler.Compile("payload.json")
	if err != nil {
		return nil, err
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	s := &Server{addr: addr, board: board, store: store, schema: schema, router: router}
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.POST("/rush", s.handlePush)
	return s, nil
}

// Run 阻塞运行 HTTP 服务。
func (s *Server) Run() error {
	logger.Infof("[rush] 监听 %s, board=%s", s.addr, s.board)
	return s.router.Run(s.addr)
}

// Handler 暴露底层 handler, 测试用。
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handlePush(c *gin.Context) {
	raw, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "载荷不是合法 JSON"})
		return
	}
	if err := s.schema.Validate(payload); err != nil {
		logger.Warnf("[rush] 载荷校验失败: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	board, _ := payload["boardName"].(string)
	if board != s.board {
		// 不相关的看板, 收下但不入库
		c.Status(http.StatusNoContent)
		return
	}

	fromUnix, err := toInt64(payload["fromUnixTime"])
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("fromUnixTime: %v", err)})
		return
	}
	toUnix, err := toInt64(payload["toUnixTime"])
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("toUnixTime: %v", err)})
		return
	}
	now := time.Now().UnixMilli()
	evt := &Event{
		BoardName:    board,
		TakerSide:    strings.ToLower(fmt.Sprint(payload["takerSide"])),
		Volume:       toFloat(payload["volume"]),
		LastPrice:    toFloat(payload["lastPrice"]),
		PairCurrency: fmt.Sprint(payload["pairCurrency"]),
		FromUnixTime: fromUnix,
		ToUnixTime:   toUnix,
		FromDatetime: FormatUnixMilli(fromUnix),
		ToDatetime:   FormatUnixMilli(toUnix),
		Timestamp:    now,
		Payload:      raw,
	}
	if err := s.store.Insert(c.Request.Context(), evt); err != nil {
		logger.Errorf("[rush] 入库失败: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "persist failed"})
		return
	}
	logger.Debugf("[rush] 收到事件 board=%s side=%s volume=%v", board, evt.TakerSide, evt.Volume)
	c.JSON(http.StatusOK, gin.H{"id": evt.ID})
}

func toInt64(v any) (int64, error) {
	switch val := v.(type) {
	case float64:
		return int64(val), nil
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(val), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("不是整数: %q", val)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("不支持的类型: %T", v)
	}
}

func toFloat(v any) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case string:
		f, _ := strconv.ParseFloat(strings.TrimSpace(val), 64)
		return f
	default:
		return 0
	}
}
