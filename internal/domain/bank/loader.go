package bank

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"edutest-bot/internal/domain/model"

	"gopkg.in/yaml.v3"
)

// LoadError описывает банк, не прошедший загрузку. Такой банк недоступен
// целиком: частичная загрузка запрещена, чтобы испорченный банк не выдал
// студенту неполный тест.
type LoadError struct {
	File   string
	BankID string
	Err    error
}

func (e LoadError) Error() string {
	if e.BankID != "" {
		return fmt.Sprintf("bank %q (%s): %v", e.BankID, e.File, e.Err)
	}
	return fmt.Sprintf("bank file %s: %v", e.File, e.Err)
}

func (e LoadError) Unwrap() error { return e.Err }

// Catalog — неизменяемый набор загруженных банков вопросов.
type Catalog struct {
	banks map[string]*model.QuestionBank
}

// Get возвращает банк по идентификатору или ErrBankNotFound.
func (c *Catalog) Get(bankID string) (*model.QuestionBank, error) {
	if c == nil {
		return nil, model.ErrBankNotFound
	}
	b, ok := c.banks[bankID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", model.ErrBankNotFound, bankID)
	}
	return b, nil
}

// List возвращает банки в детерминированном порядке (по идентификатору).
func (c *Catalog) List() []*model.QuestionBank {
	if c == nil {
		return nil
	}
	out := make([]*model.QuestionBank, 0, len(c.banks))
	for _, b := range c.banks {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Len возвращает количество загруженных банков.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.banks)
}

// NewStaticCatalog собирает каталог из готовых банков без чтения файлов.
// Используется в тестах и как запасной источник в окружениях без каталога.
func NewStaticCatalog(banks ...*model.QuestionBank) *Catalog {
	c := &Catalog{banks: make(map[string]*model.QuestionBank, len(banks))}
	for _, b := range banks {
		c.banks[b.ID] = b
	}
	return c
}

// Loader читает определения банков из каталога с YAML-файлами.
// Источник трактуется строго как read-only.
type Loader struct {
	dir string
}

// NewLoader создаёт загрузчик для указанного каталога.
func NewLoader(dir string) *Loader {
	return &Loader{dir: dir}
}

// Load загружает все банки из каталога. Ошибочные файлы не роняют процесс:
// такой банк пропускается и попадает в список ошибок для администратора,
// остальные банки остаются доступными.
func (l *Loader) Load() (*Catalog, []LoadError, error) {
	entries, err := filepath.Glob(filepath.Join(l.dir, "*.yaml"))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list bank dir %s: %w", l.dir, err)
	}
	more, err := filepath.Glob(filepath.Join(l.dir, "*.yml"))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list bank dir %s: %w", l.dir, err)
	}
	entries = append(entries, more...)
	sort.Strings(entries)

	catalog := &Catalog{banks: make(map[string]*model.QuestionBank)}
	var loadErrs []LoadError

	for _, path := range entries {
		b, err := loadFile(path)
		if err != nil {
			id := ""
			if b != nil {
				id = b.ID
			}
			loadErrs = append(loadErrs, LoadError{File: filepath.Base(path), BankID: id, Err: err})
			continue
		}
		if _, exists := catalog.banks[b.ID]; exists {
			loadErrs = append(loadErrs, LoadError{
				File:   filepath.Base(path),
				BankID: b.ID,
				Err:    fmt.Errorf("%w: duplicate bank id", model.ErrBankMalformed),
			})
			continue
		}
		catalog.banks[b.ID] = b
	}

	return catalog, loadErrs, nil
}

// loadFile читает и валидирует один банк. Любое нарушение инвариантов
// делает банк целиком непригодным.
func loadFile(path string) (*model.QuestionBank, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read bank file: %w", err)
	}

	var b model.QuestionBank
	if err := yaml.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrBankMalformed, err)
	}

	if err := validate(&b); err != nil {
		return &b, err
	}
	return &b, nil
}

// validate проверяет инварианты банка: непустой идентификатор и список
// вопросов, уникальность идентификаторов вопросов, не менее двух вариантов
// и корректный индекс правильного ответа у каждого вопроса.
func validate(b *model.QuestionBank) error {
	if b.ID == "" {
		return fmt.Errorf("%w: empty bank id", model.ErrBankMalformed)
	}
	if len(b.Questions) == 0 {
		return fmt.Errorf("%w: bank has no questions", model.ErrBankMalformed)
	}

	seen := make(map[string]bool, len(b.Questions))
	for i, q := range b.Questions {
		if q.ID == "" {
			return fmt.Errorf("%w: question #%d has empty id", model.ErrBankMalformed, i+1)
		}
		if seen[q.ID] {
			return fmt.Errorf("%w: duplicate question id %q", model.ErrBankMalformed, q.ID)
		}
		seen[q.ID] = true
		if q.Prompt == "" {
			return fmt.Errorf("%w: question %q has empty prompt", model.ErrBankMalformed, q.ID)
		}
		if len(q.Options) < 2 {
			return fmt.Errorf("%w: question %q has fewer than 2 options", model.ErrBankMalformed, q.ID)
		}
		if q.Correct < 0 || q.Correct >= len(q.Options) {
			return fmt.Errorf("%w: question %q correct index %d out of range [0,%d)",
				model.ErrBankMalformed, q.ID, q.Correct, len(q.Options))
		}
		if q.Weight < 0 {
			return fmt.Errorf("%w: question %q has negative weight", model.ErrBankMalformed, q.ID)
		}
	}
	return nil
}
