package catalog

import (
	"fmt"
	"log"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/qs3c/cafe_sub_server/internal/model"
)

// PlanEntry 套餐目录文件中的一项
type PlanEntry struct {
	ID           int64  `yaml:"id"`
	Name         string `yaml:"name"`
	Description  string `yaml:"description"`
	ProductName  string `yaml:"product_name"`
	ImageURL     string `yaml:"image_url"`
	Price        int64  `yaml:"price"`
	DurationDays int    `yaml:"duration_days"`
	DailyQuota   int    `yaml:"daily_quota"`
	MaxPerVisit  int    `yaml:"max_per_visit"`
	Active       *bool  `yaml:"active"`
}

type file struct {
	Plans []PlanEntry `yaml:"plans"`
}

// PlanWriter 套餐写入方
type PlanWriter interface {
	Upsert(plan *model.Plan) error
}

// Load 读取并校验目录文件
func Load(path string) ([]*model.Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(data)
}

// Parse 解析目录内容，active 缺省为 true
func Parse(data []byte) ([]*model.Plan, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	seen := make(map[int64]bool, len(f.Plans))
	plans := make([]*model.Plan, 0, len(f.Plans))
	for i, e := range f.Plans {
		if err := e.validate(); err != nil {
			return nil, fmt.Errorf("plan #%d: %w", i+1, err)
		}
		if seen[e.ID] {
			return nil, fmt.Errorf("plan #%d: duplicate id %d", i+1, e.ID)
		}
		seen[e.ID] = true

		active := true
		if e.Active != nil {
			active = *e.Active
		}
		plans = append(plans, &model.Plan{
			ID:           e.ID,
			Name:         e.Name,
			Description:  e.Description,
			ProductName:  e.ProductName,
			ImageURL:     e.ImageURL,
			Price:        e.Price,
			DurationDays: e.DurationDays,
			DailyQuota:   e.DailyQuota,
			MaxPerVisit:  e.MaxPerVisit,
			Active:       active,
		})
	}
	return plans, nil
}

func (e PlanEntry) validate() error {
	switch {
	case e.ID <= 0:
		return fmt.Errorf("id must be positive")
	case e.Name == "":
		return fmt.Errorf("name is required")
	case e.Price <= 0:
		return fmt.Errorf("price must be positive")
	case e.DurationDays <= 0:
		return fmt.Errorf("duration_days must be positive")
	case e.DailyQuota <= 0:
		return fmt.Errorf("daily_quota must be positive")
	case e.MaxPerVisit <= 0 || e.MaxPerVisit > e.DailyQuota:
		return fmt.Errorf("max_per_visit must be between 1 and daily_quota")
	}
	return nil
}

// Seed 载入目录并写入数据库，返回写入数量
func Seed(path string, w PlanWriter) (int, error) {
	plans, err := Load(path)
	if err != nil {
		return 0, err
	}
	for _, p := range plans {
		if err := w.Upsert(p); err != nil {
			return 0, fmt.Errorf("upsert plan %d: %w", p.ID, err)
		}
	}
	log.Printf("Catalog seeded: %d plans from %s", len(plans), path)
	return len(plans), nil
}
