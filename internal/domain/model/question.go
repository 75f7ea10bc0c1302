package model

// Question представляет один вопрос теста. После загрузки банка запись
// неизменяема: правильный индекс всегда лежит в границах Options.
type Question struct {
	ID      string   `yaml:"id" json:"id"`
	Prompt  string   `yaml:"prompt" json:"prompt"`
	Options []string `yaml:"options" json:"options"`
	Correct int      `yaml:"correct" json:"correct"`
	Weight  int      `yaml:"weight" json:"weight"` // 0 трактуется как вес 1
	Topic   string   `yaml:"topic" json:"topic,omitempty"`
}

// PointWeight возвращает эффективный вес вопроса.
func (q Question) PointWeight() int {
	if q.Weight <= 0 {
		return 1
	}
	return q.Weight
}

// QuestionBank — именованная версионированная коллекция вопросов.
// Загружается один раз на старте процесса и не изменяется.
type QuestionBank struct {
	ID        string     `yaml:"id" json:"id"`
	Name      string     `yaml:"name" json:"name"`
	Version   int        `yaml:"version" json:"version"`
	Questions []Question `yaml:"questions" json:"questions"`
}

// TotalWeight возвращает максимально возможный балл по банку целиком.
func (b QuestionBank) TotalWeight() int {
	total := 0
	for _, q := range b.Questions {
		total += q.PointWeight()
	}
	return total
}
