package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Page is capped so the offset always fits an int.
type pageQuery struct {
	Page     int `form:"page,default=1" binding:"min=1,max=1000000"`
	PageSize int `form:"page_size,default=20" binding:"min=1,max=100"`
}

func (q pageQuery) limit() int  { return q.PageSize }
func (q pageQuery) offset() int { return (q.Page - 1) * q.PageSize }

func pathID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		badRequest(c, "invalid "+name, map[string]string{name: "must be a valid UUID"})
		return uuid.Nil, false
	}
	return id, true
}
