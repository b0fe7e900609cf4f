package store

import (
	"fmt"

	"gorm.io/gorm"
)

type DeleteAction int

const (
	Cascade DeleteAction = iota
	SetNull
)

func (a DeleteAction) String() string {
	if a == SetNull {
		return "set_null"
	}
	return "cascade"
}

// DeleteRule описывает, что делать со ссылающимися строками при удалении родителя
type DeleteRule struct {
	Table  string
	Column string
	Action DeleteAction
}

// deleteRules - правила удаления по родительской таблице.
// Дублируют внешние ключи из тегов моделей, чтобы поведение не зависело от движка.
var deleteRules = map[string][]DeleteRule{
	"users": {
		{Table: "user_tokens", Column: "user_id", Action: Cascade},
		{Table: "follows", Column: "user_id", Action: Cascade},
		{Table: "follows", Column: "author_id", Action: Cascade},
		{Table: "comments", Column: "author_id", Action: Cascade},
		{Table: "posts", Column: "author_id", Action: Cascade},
	},
	"groups": {
		{Table: "posts", Column: "group_id", Action: SetNull},
	},
	"posts": {
		{Table: "comments", Column: "post_id", Action: Cascade},
	},
}

// DeleteRules возвращает правила для таблицы (копию)
func DeleteRules(table string) []DeleteRule {
	return append([]DeleteRule(nil), deleteRules[table]...)
}

// deleteWithRules удаляет строки table по ids, применяя правила рекурсивно.
// Вызывается внутри транзакции.
func deleteWithRules(tx *gorm.DB, table string, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	for _, rule := range deleteRules[table] {
		switch rule.Action {
		case SetNull:
			err := tx.Table(rule.Table).
				Where(rule.Column+" IN ?", ids).
				Update(rule.Column, nil).Error
			if err != nil {
				return fmt.Errorf("set null %s.%s: %w", rule.Table, rule.Column, err)
			}
		case Cascade:
			var childIDs []int64
			err := tx.Table(rule.Table).
				Where(rule.Column+" IN ?", ids).
				Pluck("id", &childIDs).Error
			if err != nil {
				return fmt.Errorf("collect %s by %s: %w", rule.Table, rule.Column, err)
			}
			if err := deleteWithRules(tx, rule.Table, childIDs); err != nil {
				return err
			}
		}
	}
	if err := tx.Exec(fmt.Sprintf("DELETE FROM %s WHERE id IN ?", tx.Statement.Quote(table)), ids).Error; err != nil {
		return fmt.Errorf("delete from %s: %w", table, err)
	}
	return nil
}
