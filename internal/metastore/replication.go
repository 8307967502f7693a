package metastore

// OpKind names a replicable metadata mutation, one variant per operation
// rather than a generic SQL string.
type OpKind string

const (
	OpCreateUser              OpKind = "create_user"
	OpCreateFile              OpKind = "create_file"
	OpCreateChunkMapping      OpKind = "create_chunk_mapping"
	OpCreatePermissionRequest OpKind = "create_permission_request"
	OpSetPermissionStatus     OpKind = "set_permission_status"
)

// SetStatusPayload is the Op variant for SetPermissionStatus.
type SetStatusPayload struct {
	RequestID string `json:"request_id"`
	Status    string `json:"status"`
}

// Op is what a leader sends to POST /system/replicate and what a follower
// applies. Exactly one of the pointer fields matching Kind is set.
type Op struct {
	Kind             OpKind             `json:"kind"`
	User             *User              `json:"user,omitempty"`
	File             *File              `json:"file,omitempty"`
	Chunk            *ChunkMapping      `json:"chunk,omitempty"`
	Permission       *PermissionRequest `json:"permission,omitempty"`
	PermissionStatus *SetStatusPayload  `json:"permission_status,omitempty"`
}

// Apply applies a replicated Op on a follower, idempotently: user, file and
// permission-request inserts use INSERT OR IGNORE (a unique-key conflict is
// a no-op), the chunk mapping uses INSERT OR REPLACE, and the status update
// is naturally idempotent. Replaying the same Op repeatedly yields
// the same stored state as applying it once.
func (s *Store) Apply(op Op) error {
	switch op.Kind {
	case OpCreateUser:
		if op.User == nil {
			return nil
		}
		_, err := s.db.Exec(`INSERT OR IGNORE INTO users (user_id, username, password_digest) VALUES (?, ?, ?)`,
			op.User.UserID, op.User.Username, op.User.PasswordDigest)
		return err

	case OpCreateFile:
		if op.File == nil {
			return nil
		}
		_, err := s.db.Exec(`INSERT OR IGNORE INTO files (file_id, filename, size, owner_user_id) VALUES (?, ?, ?, ?)`,
			op.File.FileID, op.File.Filename, op.File.Size, op.File.OwnerUserID)
		return err

	case OpCreateChunkMapping:
		if op.Chunk == nil {
			return nil
		}
		_, err := s.db.Exec(`INSERT OR REPLACE INTO chunk_mapping
			(chunk_handle, file_id, sequence_index, primary_location, replica_set) VALUES (?, ?, ?, ?, ?)`,
			op.Chunk.ChunkHandle, op.Chunk.FileID, op.Chunk.SequenceIndex, op.Chunk.PrimaryLocation, joinInts(op.Chunk.ReplicaSet))
		return err

	case OpCreatePermissionRequest:
		if op.Permission == nil {
			return nil
		}
		_, err := s.db.Exec(`INSERT OR IGNORE INTO permission_requests
			(request_id, file_id, user_id, access_type, status) VALUES (?, ?, ?, ?, ?)`,
			op.Permission.RequestID, op.Permission.FileID, op.Permission.UserID, op.Permission.AccessType, op.Permission.Status)
		return err

	case OpSetPermissionStatus:
		if op.PermissionStatus == nil {
			return nil
		}
		_, err := s.db.Exec(`UPDATE permission_requests SET status = ? WHERE request_id = ?`,
			op.PermissionStatus.Status, op.PermissionStatus.RequestID)
		return err

	default:
		return nil
	}
}
