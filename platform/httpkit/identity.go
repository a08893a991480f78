package httpkit

import (
	"salesbot_backend/platform/phone"

	"github.com/gin-gonic/gin"
)

// Operator is the authenticated caller of the operator console.
type Operator struct {
	ID         string
	Roles      []string
	Businesses []string
}

// GetOperator extracts the operator set by AuthRequired.
func GetOperator(c *gin.Context) (Operator, bool) {
	id := c.GetString(ContextOperatorIDKey)
	if id == "" {
		return Operator{}, false
	}
	roles, _ := c.Get(ContextRolesKey)
	businesses, _ := c.Get(ContextBusinessesKey)
	roleList, _ := roles.([]string)
	businessList, _ := businesses.([]string)
	return Operator{ID: id, Roles: roleList, Businesses: businessList}, true
}

// CanManage reports whether the operator may act on businessID.
func (o Operator) CanManage(businessID string) bool {
	for _, b := range o.Businesses {
		if b == "*" || phone.SameID(b, businessID) {
			return true
		}
	}
	return false
}
