package server

import (
	"github.com/gin-gonic/gin"
)

// NewDefaultGinEngine 创建一个不带默认中间件的 Gin 引擎。
// 中间件的顺序与集合由调用方决定。
func NewDefaultGinEngine(mode string, middlewares ...gin.HandlerFunc) *gin.Engine {
	if mode != "" {
		gin.SetMode(mode)
	}
	engine := gin.New()
	engine.Use(middlewares...)
	return engine
}
