package database

import (
	"context"
	"fmt"

	"artstory-server/internal/interfaces"
	"artstory-server/internal/models"

	"github.com/georgysavva/scany/v2/pgxscan"
	"go.uber.org/zap"
)

const instructionFields = `id, name, system_prompt, user_prompt, is_default, created_at`

const (
	createInstructionQuery = `
		INSERT INTO ai_instructions (name, system_prompt, user_prompt, is_default)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`
	updateInstructionQuery = `
		UPDATE ai_instructions
		SET name = $2, system_prompt = $3, user_prompt = $4, is_default = $5
		WHERE id = $1`
	getInstructionQuery        = `SELECT ` + instructionFields + ` FROM ai_instructions WHERE id = $1`
	lockInstructionQuery       = getInstructionQuery + ` FOR UPDATE`
	getDefaultInstructionQuery = `SELECT ` + instructionFields + ` FROM ai_instructions WHERE is_default LIMIT 1`
	listInstructionsQuery      = `SELECT ` + instructionFields + ` FROM ai_instructions ORDER BY id`
	deleteInstructionQuery     = `DELETE FROM ai_instructions WHERE id = $1`
	clearDefaultInstructionQ   = `UPDATE ai_instructions SET is_default = FALSE WHERE is_default AND id <> $1`
)

type pgInstructionRepository struct {
	logger *zap.Logger
}

func NewPgInstructionRepository(logger *zap.Logger) interfaces.InstructionRepository {
	return &pgInstructionRepository{logger: logger.Named("PgInstructionRepo")}
}

func (r *pgInstructionRepository) Create(ctx context.Context, querier interfaces.DBTX, instruction *models.AnalysisInstruction) error {
	err := querier.QueryRow(ctx, createInstructionQuery,
		instruction.Name, instruction.SystemPrompt, instruction.UserPrompt, instruction.IsDefault,
	).Scan(&instruction.ID, &instruction.CreatedAt)
	if err != nil {
		if isPgError(err, pgUniqueViolation) {
			return fmt.Errorf("%w: another default instruction exists", models.ErrConflict)
		}
		r.logger.Error("Failed to create instruction", zap.String("name", instruction.Name), zap.Error(err))
		return fmt.Errorf("failed to create instruction: %w", err)
	}
	r.logger.Info("Instruction created", zap.Int64("id", instruction.ID), zap.Bool("isDefault", instruction.IsDefault))
	return nil
}

func (r *pgInstructionRepository) Update(ctx context.Context, querier interfaces.DBTX, instruction *models.AnalysisInstruction) error {
	tag, err := querier.Exec(ctx, updateInstructionQuery,
		instruction.ID, instruction.Name, instruction.SystemPrompt, instruction.UserPrompt, instruction.IsDefault)
	if err != nil {
		if isPgError(err, pgUniqueViolation) {
			return fmt.Errorf("%w: another default instruction exists", models.ErrConflict)
		}
		r.logger.Error("Failed to update instruction", zap.Int64("id", instruction.ID), zap.Error(err))
		return fmt.Errorf("failed to update instruction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: instruction %d", models.ErrNotFound, instruction.ID)
	}
	return nil
}

func (r *pgInstructionRepository) GetByID(ctx context.Context, querier interfaces.DBTX, id int64) (*models.AnalysisInstruction, error) {
	return r.getOne(ctx, querier, getInstructionQuery, id)
}

func (r *pgInstructionRepository) LockByID(ctx context.Context, querier interfaces.DBTX, id int64) (*models.AnalysisInstruction, error) {
	return r.getOne(ctx, querier, lockInstructionQuery, id)
}

func (r *pgInstructionRepository) getOne(ctx context.Context, querier interfaces.DBTX, query string, id int64) (*models.AnalysisInstruction, error) {
	var instruction models.AnalysisInstruction
	if err := pgxscan.Get(ctx, querier, &instruction, query, id); err != nil {
		return nil, wrapNotFound(err, "instruction", id)
	}
	return &instruction, nil
}

func (r *pgInstructionRepository) GetDefault(ctx context.Context, querier interfaces.DBTX) (*models.AnalysisInstruction, error) {
	var instruction models.AnalysisInstruction
	if err := pgxscan.Get(ctx, querier, &instruction, getDefaultInstructionQuery); err != nil {
		if pgxscan.NotFound(err) {
			return nil, fmt.Errorf("%w: default instruction", models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get default instruction: %w", err)
	}
	return &instruction, nil
}

func (r *pgInstructionRepository) List(ctx context.Context, querier interfaces.DBTX) ([]models.AnalysisInstruction, error) {
	instructions := []models.AnalysisInstruction{}
	if err := pgxscan.Select(ctx, querier, &instructions, listInstructionsQuery); err != nil {
		r.logger.Error("Failed to list instructions", zap.Error(err))
		return nil, fmt.Errorf("failed to list instructions: %w", err)
	}
	return instructions, nil
}

func (r *pgInstructionRepository) Delete(ctx context.Context, querier interfaces.DBTX, id int64) error {
	tag, err := querier.Exec(ctx, deleteInstructionQuery, id)
	if err != nil {
		r.logger.Error("Failed to delete instruction", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to delete instruction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: instruction %d", models.ErrNotFound, id)
	}
	r.logger.Info("Instruction deleted", zap.Int64("id", id))
	return nil
}

func (r *pgInstructionRepository) ClearDefault(ctx context.Context, querier interfaces.DBTX, exceptID int64) error {
	if _, err := querier.Exec(ctx, clearDefaultInstructionQ, exceptID); err != nil {
		return fmt.Errorf("failed to clear default instruction: %w", err)
	}
	return nil
}
