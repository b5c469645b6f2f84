package service

import (
	"fmt"

	"github.com/ArnovZ080/guildboard/pkg/models"
	"github.com/ArnovZ080/guildboard/pkg/storage"
)

// NodeService owns DAG-node persistence and the dependency invariant:
// a node may only start once every dependency is completed.
type NodeService struct {
	store  storage.Store
	logger Logger
}

func NewNodeService(store storage.Store, logger Logger) *NodeService {
	return &NodeService{
		store:  store,
		logger: logger,
	}
}

// CanRunNode reports whether all of the node's dependencies are completed.
func (ns *NodeService) CanRunNode(node models.Node) (bool, error) {
	for _, dep := range node.Dependencies {
		d, err := ns.store.GetNode(dep, node.WorkflowID)
		if err != nil {
			ns.logger.Errorf("Error retrieving dependency %s: %v", dep, err)
			return false, fmt.Errorf("failed to retrieve dependency %s: %v", dep, err)
		}
		if d.Status != models.CompletedNodeStatus {
			ns.logger.Infof("Cannot run node %s as dependency %s is not completed", node.ID, dep)
			return false, nil
		}
	}
	return true, nil
}

func (ns *NodeService) SaveNode(node models.Node) (err error) {
	txStore, err := ns.store.Begin()
	if err != nil {
		ns.logger.Errorf("Failed to begin transaction for SaveNode: %v", err)
		return fmt.Errorf("failed to begin transaction: %v", err)
	}
	defer func() {
		if err != nil {
			if rollbackErr := txStore.Rollback(); rollbackErr != nil {
				ns.logger.Errorf("Failed to rollback: %v", rollbackErr)
			}
		} else {
			if commitErr := txStore.Commit(); commitErr != nil {
				ns.logger.Errorf("Failed to commit: %v", commitErr)
				err = commitErr
			}
		}
	}()

	if err = txStore.SaveNode(node); err != nil {
		ns.logger.Errorf("Failed to save node %s: %v", node.ID, err)
		return fmt.Errorf("failed to save node %s: %v", node.ID, err)
	}
	return nil
}

func (ns *NodeService) UpdateNodeStatus(nodeID string, workflowID int64, status models.NodeStatus, errMsg string) (err error) {
	txStore, err := ns.store.Begin()
	if err != nil {
		ns.logger.Errorf("Failed to begin transaction for UpdateNodeStatus: %v", err)
		return fmt.Errorf("failed to begin transaction: %v", err)
	}
	defer func() {
		if err != nil {
			if rollbackErr := txStore.Rollback(); rollbackErr != nil {
				ns.logger.Errorf("Failed to rollback: %v", rollbackErr)
			}
		} else {
			if commitErr := txStore.Commit(); commitErr != nil {
				ns.logger.Errorf("Failed to commit: %v", commitErr)
				err = commitErr
			}
		}
	}()

	if err = txStore.UpdateNodeStatus(nodeID, workflowID, status, errMsg); err != nil {
		ns.logger.Errorf("Failed to update node %s status to %s: %v", nodeID, status, err)
		return fmt.Errorf("failed to update node %s status: %v", nodeID, err)
	}
	return nil
}
