package idgen

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
)

var (
	nodeOnce sync.Once
	node     *snowflake.Node
	nodeErr  error
	nodeID   int64 = 1
)

// SetNode 设置 snowflake 节点号，需在首次生成 ID 之前调用
func SetNode(id int64) {
	nodeID = id
}

func getNode() (*snowflake.Node, error) {
	nodeOnce.Do(func() {
		node, nodeErr = snowflake.NewNode(nodeID)
	})
	return node, nodeErr
}

// NextID 生成单调递增的 snowflake ID
func NextID() (int64, error) {
	n, err := getNode()
	if err != nil {
		return 0, fmt.Errorf("init snowflake node: %w", err)
	}
	return n.Generate().Int64(), nil
}

// TransferReference 生成转账备注中的订单号，只包含大写字母和数字，避免银行截断特殊字符
func TransferReference(planID int64, customerID string) (string, error) {
	id, err := NextID()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("SUB%dC%sT%d", planID, sanitize(customerID), id), nil
}

// 客户段最多 16 位（见 sanitize），序号是 snowflake ID；银行可能在备注后直接拼接流水号
var referencePattern = regexp.MustCompile(`SUB\d+C[A-Z0-9]{0,16}?T\d{18,19}`)

// FindTransferReference 在转账备注中查找订单号，不区分大小写，找不到返回空串
func FindTransferReference(content string) string {
	return referencePattern.FindString(strings.ToUpper(content))
}

// NewUUID 生成随机 UUID 字符串
func NewUUID() string {
	return uuid.NewString()
}

func sanitize(s string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(s) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	if b.Len() > 16 {
		return b.String()[:16]
	}
	return b.String()
}
