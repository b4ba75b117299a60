package server

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/lookback/bridge"
	"github.com/wyfcoding/lookback/contextx"
	"github.com/wyfcoding/lookback/datetime"
	"github.com/wyfcoding/lookback/health"
	"github.com/wyfcoding/lookback/lookback"
	"github.com/wyfcoding/lookback/response"
	"github.com/wyfcoding/lookback/xerrors"
)

// Handler 把定价引擎注册表暴露为 HTTP 接口。
type Handler struct {
	reg    *bridge.Registry
	health *health.Health
	quotes Publisher
	logger *slog.Logger
}

// NewHandler 创建处理器，hc 为 nil 时使用只包含注册表信息的健康检查。
func NewHandler(reg *bridge.Registry, hc *health.Health, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if hc == nil {
		hc = health.New(0)
	}
	hc.Detail("handles", func() any { return reg.Len() })
	return &Handler{reg: reg, health: hc, logger: logger}
}

// PublishTo 设置定价结果的推送目标，p 为 nil 时不推送。
func (h *Handler) PublishTo(p Publisher) *Handler {
	h.quotes = p
	return h
}

func (h *Handler) publish(handle bridge.Handle, event string, data any) {
	if h.quotes != nil {
		h.quotes.Publish(int64(handle), event, data)
	}
}

type createRequest struct {
	Spot         float64 `json:"spot"`
	ValueDate    string  `json:"value_date"    binding:"required"`
	MaturityDate string  `json:"maturity_date" binding:"required"`
	Sigma        float64 `json:"sigma"`
	Rate         float64 `json:"rate"`
	Kind         string  `json:"kind"          binding:"required"`
	Step         float64 `json:"h"`
	Convention   string  `json:"convention"`
}

type contractView struct {
	Handle       int64   `json:"handle"`
	Kind         string  `json:"kind"`
	Spot         float64 `json:"spot"`
	Sigma        float64 `json:"sigma"`
	Rate         float64 `json:"rate"`
	TTM          float64 `json:"ttm"`
	Step         float64 `json:"h"`
	ValueDate    string  `json:"value_date"`
	MaturityDate string  `json:"maturity_date"`
	Convention   string  `json:"convention"`
}

func newContractView(h bridge.Handle, c lookback.Contract) contractView {
	return contractView{
		Handle:       int64(h),
		Kind:         c.Kind().String(),
		Spot:         c.Spot(),
		Sigma:        c.Sigma(),
		Rate:         c.Rate(),
		TTM:          c.TTM(),
		Step:         c.Step(),
		ValueDate:    c.ValueDate().String(),
		MaturityDate: c.MaturityDate().String(),
		Convention:   c.Convention().String(),
	}
}

// parseConvention 接受 0..4 的整数编码或约定名称，空串表示 ACT/ACT ISDA。
func parseConvention(s string) (datetime.DayCount, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return datetime.ActActISDA, nil
	}
	if code, err := strconv.Atoi(s); err == nil {
		return bridge.ConventionFromCode(code)
	}
	return datetime.ParseDayCount(s)
}

// CreateContract 校验参数并创建定价引擎。
func (h *Handler) CreateContract(c *gin.Context) {
	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	value, err := datetime.ParseDate(req.ValueDate)
	if err != nil {
		response.Error(c, err)
		return
	}
	maturity, err := datetime.ParseDate(req.MaturityDate)
	if err != nil {
		response.Error(c, err)
		return
	}
	dc, err := parseConvention(req.Convention)
	if err != nil {
		response.Error(c, err)
		return
	}
	// 无法识别的类型保留为零值，由合约校验按固定顺序报告。
	kind, _ := lookback.ParseOptionKind(req.Kind)

	handle, engine, err := h.reg.OpenSpec(lookback.ContractSpec{
		Spot:         req.Spot,
		ValueDate:    value,
		MaturityDate: maturity,
		Sigma:        req.Sigma,
		Rate:         req.Rate,
		Kind:         kind,
		Step:         req.Step,
		Convention:   dc,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithStatus(c, http.StatusCreated, newContractView(handle, engine.Contract()))
}

// DeleteContract 销毁句柄。
func (h *Handler) DeleteContract(c *gin.Context) {
	handle, ok := h.handle(c)
	if !ok {
		return
	}
	if err := h.reg.Close(handle); err != nil {
		response.Error(c, err)
		return
	}
	h.publish(handle, "closed", nil)
	response.Success(c, gin.H{"handle": int64(handle)})
}

// GetContract 返回句柄对应的合约参数。
func (h *Handler) GetContract(c *gin.Context) {
	handle, engine, ok := h.engine(c)
	if !ok {
		return
	}
	response.Success(c, newContractView(handle, engine.Contract()))
}

// Price 以合约参数定价，查询参数 spot、sigma、rate、ttm、paths 可以覆盖对应的值。
func (h *Handler) Price(c *gin.Context) {
	handle, engine, ok := h.engine(c)
	if !ok {
		return
	}
	ct := engine.Contract()
	q := query{c: c}
	s := q.float("spot", ct.Spot())
	sigma := q.float("sigma", ct.Sigma())
	r := q.float("rate", ct.Rate())
	t := q.float("ttm", ct.TTM())
	n := q.integer("paths", engine.DefaultPaths())
	if q.err != nil {
		response.Error(c, q.err)
		return
	}

	price, err := engine.Price(c.Request.Context(), s, sigma, r, t, n)
	if err != nil {
		response.Error(c, err)
		return
	}
	quote := gin.H{
		"price": price,
		"spot":  s,
		"sigma": sigma,
		"rate":  r,
		"ttm":   t,
		"paths": n,
	}
	h.publish(handle, "price", quote)
	response.Success(c, quote)
}

// Greeks 返回价格与全部希腊值。
func (h *Handler) Greeks(c *gin.Context) {
	handle, engine, ok := h.engine(c)
	if !ok {
		return
	}
	report, err := engine.Report(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	h.publish(handle, "greeks", report)
	response.Success(c, report)
}

// Greek 返回单个希腊值。delta 接受可选的 spot 查询参数。
func (h *Handler) Greek(c *gin.Context) {
	handle, engine, ok := h.engine(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	name := strings.ToLower(c.Param("name"))

	var (
		v   float64
		err error
	)
	switch name {
	case "delta":
		q := query{c: c}
		if s := q.float("spot", engine.Contract().Spot()); q.err != nil {
			err = q.err
		} else {
			v, err = engine.Delta(ctx, s)
		}
	case "gamma":
		v, err = engine.Gamma(ctx)
	case "vega":
		v, err = engine.Vega(ctx)
	case "rho":
		v, err = engine.Rho(ctx)
	case "theta":
		v, err = engine.Theta(ctx)
	default:
		err = xerrors.NotFound("unknown greek").WithDetail("%q", name)
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	quote := gin.H{"greek": name, "value": v}
	h.publish(handle, "greek", quote)
	response.Success(c, quote)
}

// Graph 返回价格或 Delta 曲线。limit > 0 时只计算并返回前 limit 个点，points 总是完整曲线的点数。
func (h *Handler) Graph(c *gin.Context) {
	_, engine, ok := h.engine(c)
	if !ok {
		return
	}
	q := query{c: c}
	dx := q.float("dx", 0.05)
	limit := q.integer("limit", 0)
	if q.err != nil {
		response.Error(c, q.err)
		return
	}

	var (
		g   lookback.Graph
		err error
	)
	switch kind := strings.ToLower(c.Param("kind")); kind {
	case "price":
		g, err = engine.GraphPrice(c.Request.Context(), dx, limit)
	case "delta":
		g, err = engine.GraphDelta(c.Request.Context(), dx, limit)
	default:
		err = xerrors.NotFound("unknown graph kind").WithDetail("%q", kind)
	}
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, gin.H{"points": g.Points, "x": g.X, "y": g.Y})
}

// YearFraction 计算两个 dd-mm-yyyy 日期之间的年化期限。
func (h *Handler) YearFraction(c *gin.Context) {
	start, err := datetime.ParseDate(c.Query("start"))
	if err != nil {
		response.Error(c, err)
		return
	}
	end, err := datetime.ParseDate(c.Query("end"))
	if err != nil {
		response.Error(c, err)
		return
	}
	dc, err := parseConvention(c.Query("convention"))
	if err != nil {
		response.Error(c, err)
		return
	}
	yf, err := datetime.YearFraction(start, end, dc)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"year_fraction": yf, "convention": dc.String()})
}

// Health 输出健康检查结果，任一检查失败时返回 503。
func (h *Handler) Health(c *gin.Context) {
	report := h.health.Check(c.Request.Context())
	status := http.StatusOK
	if report.Status != health.StatusUp {
		status = http.StatusServiceUnavailable
	}
	response.SuccessWithRawData(c, status, report)
}

func (h *Handler) handle(c *gin.Context) (bridge.Handle, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, xerrors.ErrUnknownHandle.WithDetail("handle %q", c.Param("id")))
		return 0, false
	}
	c.Request = c.Request.WithContext(contextx.WithHandle(c.Request.Context(), id))
	return bridge.Handle(id), true
}

func (h *Handler) engine(c *gin.Context) (bridge.Handle, *lookback.Engine, bool) {
	handle, ok := h.handle(c)
	if !ok {
		return 0, nil, false
	}
	engine, err := h.reg.Engine(handle)
	if err != nil {
		response.Error(c, err)
		return 0, nil, false
	}
	return handle, engine, true
}

// query 解析可选的数值查询参数，缺省时取默认值，并记住第一个解析错误。
type query struct {
	c   *gin.Context
	err error
}

func (q *query) raw(name string) (string, bool) {
	if q.err != nil {
		return "", false
	}
	raw, ok := q.c.GetQuery(name)
	return raw, ok && raw != ""
}

func (q *query) float(name string, def float64) float64 {
	raw, ok := q.raw(name)
	if !ok {
		return def
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		q.err = xerrors.ErrInvalidPriceArgument.WithDetail("%s=%q", name, raw)
		return def
	}
	return v
}

func (q *query) integer(name string, def int) int {
	raw, ok := q.raw(name)
	if !ok {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		q.err = xerrors.ErrInvalidPriceArgument.WithDetail("%s=%q", name, raw)
		return def
	}
	return v
}
